package echo

// Category is one of the facility search programs. Each harvests into
// its own results subdirectory since the datasets expose different
// identifier columns per program.
type Category struct {
	// directory name of the category's corpus
	Name string
	// the p_med value the search endpoint expects
	Media string
}

var Categories = []Category{
	{Name: "facilities", Media: "ALL"},
	{Name: "air", Media: "AIR"},
	{Name: "water", Media: "WATER"},
	{Name: "drinking-water", Media: "SDW"},
	{Name: "hazardous-waste", Media: "RCRA"},
}

func CategoryByName(name string) (Category, bool) {
	for _, c := range Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}
