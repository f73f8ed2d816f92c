package location

import "regexp"

// Regions group zips that share the same nearby theaters.
const (
	RegionSaltLake = "salt-lake"
	RegionUtah     = "utah-county"
	RegionDavis    = "davis"
	RegionWeber    = "weber"
	RegionCache    = "cache-valley"
	RegionDixie    = "st-george"
)

var zipRegions = map[string]string{
	"84020": RegionSaltLake, "84047": RegionSaltLake, "84065": RegionSaltLake,
	"84070": RegionSaltLake, "84084": RegionSaltLake, "84088": RegionSaltLake,
	"84090": RegionSaltLake, "84091": RegionSaltLake, "84092": RegionSaltLake,
	"84093": RegionSaltLake, "84094": RegionSaltLake, "84095": RegionSaltLake,
	"84096": RegionSaltLake, "84101": RegionSaltLake, "84102": RegionSaltLake,
	"84103": RegionSaltLake, "84104": RegionSaltLake, "84105": RegionSaltLake,
	"84106": RegionSaltLake, "84107": RegionSaltLake, "84108": RegionSaltLake,
	"84109": RegionSaltLake, "84111": RegionSaltLake, "84112": RegionSaltLake,
	"84113": RegionSaltLake, "84115": RegionSaltLake, "84116": RegionSaltLake,
	"84117": RegionSaltLake, "84118": RegionSaltLake, "84119": RegionSaltLake,
	"84120": RegionSaltLake, "84121": RegionSaltLake, "84123": RegionSaltLake,
	"84124": RegionSaltLake, "84128": RegionSaltLake, "84129": RegionSaltLake,

	"84003": RegionUtah, "84004": RegionUtah, "84005": RegionUtah,
	"84043": RegionUtah, "84045": RegionUtah, "84057": RegionUtah,
	"84058": RegionUtah, "84059": RegionUtah, "84097": RegionUtah,
	"84601": RegionUtah, "84604": RegionUtah, "84606": RegionUtah,
	"84651": RegionUtah, "84660": RegionUtah, "84663": RegionUtah,

	"84010": RegionDavis, "84014": RegionDavis, "84025": RegionDavis,
	"84037": RegionDavis, "84040": RegionDavis, "84041": RegionDavis,

	"84401": RegionWeber, "84403": RegionWeber, "84404": RegionWeber,
	"84405": RegionWeber, "84414": RegionWeber,

	"84321": RegionCache, "84332": RegionCache, "84341": RegionCache,

	"84720": RegionDixie, "84737": RegionDixie, "84738": RegionDixie,
	"84770": RegionDixie, "84780": RegionDixie, "84790": RegionDixie,
}

// Region returns the area a zip belongs to, or "" for zips outside the
// covered areas.
func Region(zip string) string { return zipRegions[zip] }

var addressZip = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\s*$`)

// ZipOf returns the zip code that ends a street address, or "".
func ZipOf(address string) string {
	m := addressZip.FindStringSubmatch(address)
	if m == nil {
		return ""
	}
	return m[1]
}
