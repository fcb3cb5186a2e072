// Package report decodes externally generated assessment reports and renders
// them. Payload shape selection is an explicit tagged union with a fixed
// precedence, never sequential optional-field probing.
package report

import "encoding/json"

type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindText          Kind = "text"
	KindAuthenticSelf Kind = "authentic-self"
	KindProtocol      Kind = "protocol"
)

// Payload is the decoded form of a report row. Exactly one of Text,
// AuthenticSelf and Protocol is populated according to Kind; Raw always
// carries the original bytes.
type Payload struct {
	Kind          Kind
	Text          string
	AuthenticSelf *AuthenticSelf
	Protocol      *Protocol
	Raw           json.RawMessage
}

// AuthenticSelf is the fixed-layout card report shape.
type AuthenticSelf struct {
	AssessmentType string      `json:"assessmentType,omitempty"`
	Profile        SelfProfile `json:"authenticSelfProfile"`
	Fear           Fear        `json:"fearAnalysis"`
	Insights       Insights    `json:"personalizedInsights"`
}

type SelfProfile struct {
	CoreIdentity string `json:"coreIdentity"`
}

type Fear struct {
	PrimaryFear string `json:"primaryFear"`
	FearImpact  string `json:"fearImpact"`
}

type Insights struct {
	KeyRevelation    string `json:"keyRevelation"`
	ActionableAdvice string `json:"actionableAdvice"`
}

// Protocol is the multi-section identity collision report shape.
type Protocol struct {
	Name                       string     `json:"name"`
	Description                string     `json:"description"`
	TotalTimeInvestment        string     `json:"totalTimeInvestment"`
	DailyPractices             []Practice `json:"dailyPractices"`
	Emergency                  *Emergency `json:"emergencyProtocol,omitempty"`
	TemperamentOptimization    string     `json:"temperamentOptimization"`
	PracticeSelectionRationale string     `json:"practiceSelectionRationale"`
}

type Practice struct {
	Day                 int    `json:"day"`
	Letter              string `json:"letter"`
	Timing              string `json:"timing"`
	SelectedPractice    string `json:"selectedPractice"`
	FullInstructions    string `json:"fullInstructions"`
	WhyItWorks          string `json:"whyItWorks"`
	SuccessIndicator    string `json:"successIndicator"`
	BusinessApplication string `json:"businessApplication"`
}

type Emergency struct {
	Duration         string `json:"duration"`
	FullInstructions string `json:"fullInstructions"`
}

// Decode resolves the payload shape. Precedence when multiple recognized
// keys coexist: protocol, then authentic self, then text report. A bare
// JSON string decodes as a text report.
func Decode(raw json.RawMessage) Payload {
	p := Payload{Kind: KindUnknown, Raw: raw}

	var text string
	if json.Unmarshal(raw, &text) == nil {
		p.Kind = KindText
		p.Text = text
		return p
	}

	var probe struct {
		Protocol *json.RawMessage `json:"temperamentAlignedProtocol"`
		Self     *json.RawMessage `json:"authenticSelfProfile"`
		Text     string           `json:"textReport"`
	}
	if json.Unmarshal(raw, &probe) != nil {
		return p
	}

	switch {
	case probe.Protocol != nil:
		var wrapper struct {
			Protocol Protocol `json:"temperamentAlignedProtocol"`
		}
		if json.Unmarshal(raw, &wrapper) != nil {
			return p
		}
		p.Kind = KindProtocol
		p.Protocol = &wrapper.Protocol

	case probe.Self != nil:
		var self AuthenticSelf
		if json.Unmarshal(raw, &self) != nil {
			return p
		}
		p.Kind = KindAuthenticSelf
		p.AuthenticSelf = &self

	case probe.Text != "":
		p.Kind = KindText
		p.Text = probe.Text
	}

	return p
}
