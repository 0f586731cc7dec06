package reporturls

// ReportType configures one per-facility report URL list. The report
// types share the extractor but differ in which corpus they read, which
// columns may hold the identifier and whether a field can pack several
// identifiers.
type ReportType struct {
	// name of the output list, without extension
	Name string
	// corpus subdirectory the identifiers come from
	Category string
	// candidate identifier columns, exactly one is expected per dataset
	Columns []string
	// single %s placeholder receiving the identifier
	UrlTemplate string

	Required bool
	Multiple bool
}

var ReportTypes = []ReportType{
	{
		Name:        "detailed-facility-reports",
		Category:    "facilities",
		Columns:     []string{"RegistryID", "REGISTRY_ID"},
		UrlTemplate: "https://echo.epa.gov/detailed-facility-report?fid=%s",
		Required:    true,
	},
	{
		Name:        "enforcement-case-reports",
		Category:    "facilities",
		Columns:     []string{"FacCaseIds", "FEC_CASE_IDS"},
		UrlTemplate: "https://echo.epa.gov/enforcement-case-report?id=%s",
		Multiple:    true,
	},
	{
		Name:        "air-pollutant-reports",
		Category:    "air",
		Columns:     []string{"RegistryID", "SourceID"},
		UrlTemplate: "https://echo.epa.gov/air-pollutant-report?fid=%s",
		Required:    true,
	},
	{
		Name:        "effluent-charts",
		Category:    "water",
		Columns:     []string{"SourceID", "NPDESPermitNo"},
		UrlTemplate: "https://echo.epa.gov/trends/loading-tool/water-pollution-search/effluent-charts#permits=%s",
	},
	{
		Name:        "discharge-monitoring-reports",
		Category:    "water",
		Columns:     []string{"SourceID", "NPDESPermitNo"},
		UrlTemplate: "https://echo.epa.gov/trends/loading-tool/reports/dmr-pollutant-loading?permit_id=%s",
	},
}

func ReportTypeByName(name string) (ReportType, bool) {
	for _, r := range ReportTypes {
		if r.Name == name {
			return r, true
		}
	}
	return ReportType{}, false
}
