package training

// Config holds the patience settings shared by the LR decay and early stopping controllers
type Config struct {
	Patience  int     // Epochs without improvement tolerated by both controllers
	MinDelta  float64 // Minimum loss decrease that counts as an improvement for early stopping
	MinLR     float64 // Floor for learning rate decay
	Factor    float64 // Multiplicative LR decay factor, 0 < Factor < 1
	Threshold float64 // Relative improvement threshold of the plateau policy
	Cooldown  int     // Epochs to wait after an LR reduction
	Verbose   bool    // Print a notice on LR reduction and on stopping
}

// DefaultConfig returns the settings used when nothing else is specified
func DefaultConfig() Config {
	return Config{
		Patience:  5,
		MinDelta:  0,
		MinLR:     1e-6,
		Factor:    0.5,
		Threshold: DefaultPlateauThreshold,
	}
}

// NewLRDecay builds an LR decay controller for opt from the config
func (c Config) NewLRDecay(opt RateAdjustable, opts ...LRDecayOption) *LRDecay {
	base := []LRDecayOption{
		WithThreshold(c.Threshold),
		WithCooldown(c.Cooldown),
		WithLRDecayVerbose(c.Verbose),
	}
	return NewLRDecay(opt, c.Patience, c.MinLR, c.Factor, append(base, opts...)...)
}

// NewEarlyStopping builds an early stopping controller from the config
func (c Config) NewEarlyStopping() *EarlyStopping {
	return NewEarlyStopping(c.Patience, c.MinDelta, c.Verbose)
}
