package claim

// Discount is the reward for a streak.
type Discount struct {
	Percent int    `json:"percent"`
	Code    string `json:"code"`
}

// Codes holds the discount code handed out per tier.
type Codes struct {
	Five    string `yaml:"five"`
	Ten     string `yaml:"ten"`
	Fifteen string `yaml:"fifteen"`
}

// DefaultCodes are used when no codes are configured.
var DefaultCodes = Codes{Five: "ACES5", Ten: "ACES10", Fifteen: "ACES15"}

// withDefaults fills empty codes from DefaultCodes.
func (c Codes) withDefaults() Codes {
	if c.Five == "" {
		c.Five = DefaultCodes.Five
	}
	if c.Ten == "" {
		c.Ten = DefaultCodes.Ten
	}
	if c.Fifteen == "" {
		c.Fifteen = DefaultCodes.Fifteen
	}
	return c
}

// DiscountFor maps a win streak to its tier: 1 win 5%, 2 wins 10%, 3 or
// more 15%. A streak below 1 earns nothing.
func (c Codes) DiscountFor(streak int) (Discount, bool) {
	c = c.withDefaults()
	switch {
	case streak >= 3:
		return Discount{Percent: 15, Code: c.Fifteen}, true
	case streak == 2:
		return Discount{Percent: 10, Code: c.Ten}, true
	case streak == 1:
		return Discount{Percent: 5, Code: c.Five}, true
	default:
		return Discount{}, false
	}
}
