package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTextReport(t *testing.T) {
	p := Decode(json.RawMessage(`{"textReport": "Subject: Hi\nHello"}`))
	assert.Equal(t, KindText, p.Kind)
	assert.Equal(t, "Subject: Hi\nHello", p.Text)
}

func TestDecodeBareString(t *testing.T) {
	p := Decode(json.RawMessage(`"### Hi\nHello"`))
	assert.Equal(t, KindText, p.Kind)
	assert.Equal(t, "### Hi\nHello", p.Text)
}

func TestDecodeAuthenticSelf(t *testing.T) {
	raw := json.RawMessage(`{
		"authenticSelfProfile": {"coreIdentity": "builder"},
		"fearAnalysis": {"primaryFear": "irrelevance", "fearImpact": "hesitation"},
		"personalizedInsights": {"keyRevelation": "r", "actionableAdvice": "a"}
	}`)

	p := Decode(raw)
	require.Equal(t, KindAuthenticSelf, p.Kind)
	assert.Equal(t, "builder", p.AuthenticSelf.Profile.CoreIdentity)
	assert.Equal(t, "irrelevance", p.AuthenticSelf.Fear.PrimaryFear)
}

func TestDecodeProtocol(t *testing.T) {
	raw := json.RawMessage(`{
		"temperamentAlignedProtocol": {
			"name": "P.R.O.T.E.C.T.",
			"description": "d",
			"totalTimeInvestment": "15m/day",
			"dailyPractices": [
				{"day": 1, "letter": "P", "timing": "morning", "selectedPractice": "sp",
				 "fullInstructions": "fi", "whyItWorks": "w", "successIndicator": "s",
				 "businessApplication": "b"}
			],
			"emergencyProtocol": {"duration": "5m", "fullInstructions": "breathe"},
			"temperamentOptimization": "to",
			"practiceSelectionRationale": "pr"
		}
	}`)

	p := Decode(raw)
	require.Equal(t, KindProtocol, p.Kind)
	assert.Equal(t, "P.R.O.T.E.C.T.", p.Protocol.Name)
	require.Len(t, p.Protocol.DailyPractices, 1)
	assert.Equal(t, 1, p.Protocol.DailyPractices[0].Day)
	require.NotNil(t, p.Protocol.Emergency)
	assert.Equal(t, "5m", p.Protocol.Emergency.Duration)
}

// A payload carrying more than one recognized key resolves by fixed
// precedence rather than key probing order.
func TestDecodePrecedence(t *testing.T) {
	raw := json.RawMessage(`{
		"textReport": "ignored",
		"temperamentAlignedProtocol": {"name": "wins"}
	}`)

	p := Decode(raw)
	assert.Equal(t, KindProtocol, p.Kind)
	assert.Equal(t, "wins", p.Protocol.Name)

	raw = json.RawMessage(`{
		"textReport": "ignored",
		"authenticSelfProfile": {"coreIdentity": "wins"}
	}`)

	p = Decode(raw)
	assert.Equal(t, KindAuthenticSelf, p.Kind)
}

func TestDecodeUnknown(t *testing.T) {
	p := Decode(json.RawMessage(`{"somethingElse": 1}`))
	assert.Equal(t, KindUnknown, p.Kind)
	assert.JSONEq(t, `{"somethingElse": 1}`, string(p.Raw))
}

func TestParseText(t *testing.T) {
	blocks := ParseText("Subject: Your Report\n\n### **Section One**\nHello **Jane**, welcome.\n")

	require.Len(t, blocks, 3)

	assert.Equal(t, BlockTitle, blocks[0].Kind)
	assert.Equal(t, "Your Report", blocks[0].Text)

	assert.Equal(t, BlockHeading, blocks[1].Kind)
	assert.Equal(t, "Section One", blocks[1].Text)

	assert.Equal(t, BlockParagraph, blocks[2].Kind)
	require.Len(t, blocks[2].Spans, 3)
	assert.Equal(t, Span{Text: "Hello ", Strong: false}, blocks[2].Spans[0])
	assert.Equal(t, Span{Text: "Jane", Strong: true}, blocks[2].Spans[1])
	assert.Equal(t, Span{Text: ", welcome.", Strong: false}, blocks[2].Spans[2])
}

func TestRenderTextHTML(t *testing.T) {
	p := Decode(json.RawMessage(`{"textReport": "### Hi\nHello **Jane**"}`))

	var buf bytes.Buffer
	err := RenderHTML(&buf, "T", p)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<h2>Hi</h2>")
	assert.Contains(t, html, "<strong>Jane</strong>")
}

func TestRenderProtocolHTML(t *testing.T) {
	p := Decode(json.RawMessage(`{"temperamentAlignedProtocol": {"name": "Proto"}}`))

	var buf bytes.Buffer
	err := RenderHTML(&buf, "T", p)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Proto")
}

func TestRenderUnknownHTML(t *testing.T) {
	var buf bytes.Buffer
	err := RenderHTML(&buf, "T", Decode(json.RawMessage(`{"x": 1}`)))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Assessment Report")
}
