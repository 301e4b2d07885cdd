package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maya-companion/server/internal/agent/model"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    model.Language
		markers int
	}{
		{"Hello MAYA!", model.LanguageEnglish, 0},
		{"Namaste MAYA, how are you?", model.LanguageHinglish, 1},
		{"Mujhe gravity samjhao!", model.LanguageHindi, 2},
		{"kya kya kya", model.LanguageHinglish, 1},
		{"", model.LanguageEnglish, 0},
		{"  ...  ", model.LanguageEnglish, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lang, n := DetectLanguage(tt.in)
			assert.Equal(t, tt.want, lang)
			assert.Equal(t, tt.markers, n)
		})
	}
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		in   string
		want model.Intent
	}{
		{"Hello MAYA!", model.IntentGreeting},
		{"good morning", model.IntentGreeting},
		{"bye hello MAYA", model.IntentFarewell},
		{"ok see you tomorrow", model.IntentFarewell},
		{"Phir milenge!", model.IntentFarewell},
		{"5 + 3 kya hoga?", model.IntentMath},
		{"can you multiply 4 and 6", model.IntentMath},
		{"Why is the sky blue?", model.IntentQuestion},
		{"tell me about volcanoes", model.IntentQuestion},
		{"I like hindi songs", model.IntentGeneral},
		{"", model.IntentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIntent(tt.in))
		})
	}
}

func TestClassifyIntent_GreetingLengthGate(t *testing.T) {
	short := "hi MAYA how are you"
	long := "hi MAYA can you explain how photosynthesis works in plants"

	assert.Equal(t, model.IntentGreeting, ClassifyIntent(short))
	assert.Equal(t, model.IntentQuestion, ClassifyIntent(long))
	assert.Equal(t, model.IntentQuestion, ClassifyIntent("namaste, photosynthesis kya hai aur kaise hota hai?"))
}

func TestClassifyIntent_TokenMembership(t *testing.T) {
	// "hi" inside "hindi" and "this" must not count as a greeting
	assert.NotEqual(t, model.IntentGreeting, ClassifyIntent("this is hindi"))
	// "add" inside "address" must not count as math
	assert.Equal(t, model.IntentGeneral, ClassifyIntent("my address is secret"))
}

func TestClassifiersAreDeterministic(t *testing.T) {
	for _, in := range []string{"Hello MAYA!", "5 + 3 kya hoga?", "bye", "random words"} {
		l1, n1 := DetectLanguage(in)
		l2, n2 := DetectLanguage(in)
		assert.Equal(t, l1, l2)
		assert.Equal(t, n1, n2)
		assert.Equal(t, ClassifyIntent(in), ClassifyIntent(in))
	}
}

func TestRouteByIntent(t *testing.T) {
	assert.Equal(t, NodeGreetResponse, RouteByIntent(model.IntentGreeting))
	assert.Equal(t, NodeFarewellResponse, RouteByIntent(model.IntentFarewell))
	assert.Equal(t, NodeMathTutorResponse, RouteByIntent(model.IntentMath))
	assert.Equal(t, NodeHelpResponse, RouteByIntent(model.IntentQuestion))
	assert.Equal(t, NodeHelpResponse, RouteByIntent(model.IntentGeneral))
	assert.Equal(t, NodeHelpResponse, RouteByIntent(model.Intent("weird")))
	assert.Equal(t, NodeHelpResponse, RouteByIntent(model.IntentUnset))
}
