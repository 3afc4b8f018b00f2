package companion

import "strings"

// City is a listing filter value and the other spellings it is stored under
type City struct {
	Name    string
	Aliases []string
}

// Cities is the registry of filterable cities
var Cities = []City{
	{Name: "sydney", Aliases: []string{"悉尼", "雪梨"}},
	{Name: "melbourne", Aliases: []string{"墨尔本", "墨爾本"}},
	{Name: "brisbane", Aliases: []string{"布里斯班", "布村"}},
	{Name: "perth", Aliases: []string{"珀斯", "柏斯"}},
	{Name: "adelaide", Aliases: []string{"阿德莱德", "阿德雷德"}},
	{Name: "canberra", Aliases: []string{"堪培拉"}},
	{Name: "gold coast", Aliases: []string{"黄金海岸", "黃金海岸"}},
	{Name: "hobart", Aliases: []string{"霍巴特"}},
	{Name: "darwin", Aliases: []string{"达尔文"}},
}

// Terms returns the lower-cased name followed by its aliases
func (c City) Terms() []string {
	terms := make([]string, 0, len(c.Aliases)+1)
	terms = append(terms, strings.ToLower(c.Name))
	for _, a := range c.Aliases {
		terms = append(terms, strings.ToLower(a))
	}
	return terms
}

// CityTerms returns every spelling matching a filter value. The value may be
// a city name or any of its aliases; unregistered values match only themselves.
func CityTerms(filter string) []string {
	needle := strings.ToLower(strings.TrimSpace(filter))
	if needle == "" {
		return nil
	}
	for _, c := range Cities {
		for _, t := range c.Terms() {
			if t == needle {
				return c.Terms()
			}
		}
	}
	return []string{needle}
}
