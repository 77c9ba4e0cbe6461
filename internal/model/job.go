package model

// JobConfig is the persisted per-job download configuration. Current
// configurations reference a registry entry through ConnectionID; HostPort
// and CodePage appear only on data written before the registry existed and
// are never cleared, only superseded.
type JobConfig struct {
	ID            string `json:"id" yaml:"id"`
	ConnectionID  string `json:"connectionId,omitempty" yaml:"connectionId,omitempty"`
	CredentialsID string `json:"credentialsId,omitempty" yaml:"credentialsId,omitempty"`
	FilterPattern string `json:"filterPattern,omitempty" yaml:"filterPattern,omitempty"`
	FileExtension string `json:"fileExtension,omitempty" yaml:"fileExtension,omitempty"`
	TargetFolder  string `json:"targetFolder,omitempty" yaml:"targetFolder,omitempty"`

	// Legacy inline connection settings.
	HostPort string `json:"hostPort,omitempty" yaml:"hostPort,omitempty"`
	CodePage string `json:"codePage,omitempty" yaml:"codePage,omitempty"`
}

// HasLegacyConnection reports whether both legacy fields carry data. Only
// then is a migration attempted; a configuration with one empty field is
// left untouched.
func (c JobConfig) HasLegacyConnection() bool {
	return c.HostPort != "" && c.CodePage != ""
}
