package models

// BrowserDefinition is the resolved, canonical description of one test target
type BrowserDefinition struct {
	DisplayName string `json:"displayName" yaml:"displayName"`
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	OS          string `json:"os" yaml:"os"`
	OSVersion   string `json:"osVersion" yaml:"osVersion"`
	Device      string `json:"device,omitempty" yaml:"device,omitempty"`
}

// String renders the definition the way it appears in log lines and task errors
func (d BrowserDefinition) String() string {
	s := d.Name + " " + d.Version + " on " + d.OS + " " + d.OSVersion
	if d.Device != "" {
		s += " (" + d.Device + ")"
	}
	return s
}
