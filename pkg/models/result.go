package models

const (
	// ResultFail marks the synthetic result recorded for a browser whose task failed
	ResultFail = "FAIL"
	// ResultRaw wraps a results payload the page did not encode as expected
	ResultRaw = "RAW"
)

// Result is one entry reported by the executed script
type Result struct {
	Type    string `json:"type" yaml:"type"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Data    any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// BrowserResult holds everything collected for one browser
type BrowserResult struct {
	Results []Result     `json:"results" yaml:"results"`
	Logs    []BrowserLog `json:"logs" yaml:"logs"`
}

// Failed reports whether the task behind this result failed
func (r BrowserResult) Failed() bool {
	return len(r.Results) == 1 && r.Results[0].Type == ResultFail
}

// BatchResult maps display names to their collected results
type BatchResult map[string]BrowserResult
