package params

// SessionConfig aggregates the configuration of one tracking session.
type SessionConfig struct {
	Trust      *TrustConfig
	Fusion     *FusionConfig
	Features   *FeatureConfig
	Classifier *ClassifierConfig
	Refine     *RefineConfig

	// RawLogSize bounds the audit log of raw fixes, including anomalies.
	RawLogSize int
}

func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Trust:      DefaultTrustConfig,
		Fusion:     DefaultFusionConfig(),
		Features:   DefaultFeatureConfig,
		Classifier: DefaultClassifierConfig,
		Refine:     DefaultRefineConfig(),
		RawLogSize: 10_000,
	}
}
