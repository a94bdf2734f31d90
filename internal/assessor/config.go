package assessor

// Config holds the thresholds used by the rules.
type Config struct {
	// TitleMin and TitleMax bound the recommended <title> length in characters.
	TitleMin int `yaml:"title_min"`
	TitleMax int `yaml:"title_max"`

	// DescMin and DescMax bound the recommended meta description length.
	DescMin int `yaml:"desc_min"`
	DescMax int `yaml:"desc_max"`

	// MaxAltIssues caps individual img_missing_alt issues per page.
	MaxAltIssues int `yaml:"max_alt_issues"`

	// BlockingCSSThreshold is the number of blocking stylesheets tolerated in <head>.
	BlockingCSSThreshold int `yaml:"blocking_css_threshold"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		TitleMin:             30,
		TitleMax:             60,
		DescMin:              70,
		DescMax:              160,
		MaxAltIssues:         5,
		BlockingCSSThreshold: 2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TitleMin <= 0 {
		c.TitleMin = d.TitleMin
	}
	if c.TitleMax <= 0 {
		c.TitleMax = d.TitleMax
	}
	if c.DescMin <= 0 {
		c.DescMin = d.DescMin
	}
	if c.DescMax <= 0 {
		c.DescMax = d.DescMax
	}
	if c.MaxAltIssues <= 0 {
		c.MaxAltIssues = d.MaxAltIssues
	}
	if c.BlockingCSSThreshold <= 0 {
		c.BlockingCSSThreshold = d.BlockingCSSThreshold
	}
	return c
}
