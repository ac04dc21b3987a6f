package session

// Settings is the full sampling/decoding parameter set for one generation.
// A request-scoped copy is derived from the session defaults with selective
// overrides from the caller's options object.
type Settings struct {
	Temperature      float64  `json:"temperature"`
	TopP             float64  `json:"top_p"`
	TopK             int      `json:"top_k"`
	MinP             float64  `json:"min_p"`
	MaxTokens        int      `json:"max_tokens"`
	RepeatPenalty    float64  `json:"repeat_penalty"`
	PresencePenalty  float64  `json:"presence_penalty"`
	FrequencyPenalty float64  `json:"frequency_penalty"`
	Seed             int      `json:"seed"`
	Stop             []string `json:"stop,omitempty"`
	Grammar          string   `json:"grammar,omitempty"`
	Thinking         bool     `json:"thinking"`
}

// DefaultSettings are the session defaults before any override.
func DefaultSettings() Settings {
	return Settings{
		Temperature:   0.8,
		TopP:          0.95,
		TopK:          40,
		MinP:          0.05,
		MaxTokens:     512,
		RepeatPenalty: 1.1,
	}
}

// Translate builds a settings record from base, overriding only fields that
// are present in opts and match the expected type. It returns nil when opts
// contains no recognized field, so callers can distinguish "nothing changed"
// from "changed to defaults".
func Translate(base Settings, opts map[string]any) *Settings {
	if len(opts) == 0 {
		return nil
	}
	out := base
	overridden := false

	if v, ok := optFloat(opts, "temperature"); ok {
		out.Temperature = v
		overridden = true
	}
	if v, ok := optFloat(opts, "top_p"); ok {
		out.TopP = v
		overridden = true
	}
	if v, ok := optInt(opts, "top_k"); ok {
		out.TopK = v
		overridden = true
	}
	if v, ok := optFloat(opts, "min_p"); ok {
		out.MinP = v
		overridden = true
	}
	for _, key := range []string{"num_predict", "max_tokens"} {
		if v, ok := optInt(opts, key); ok {
			out.MaxTokens = v
			overridden = true
		}
	}
	if v, ok := optFloat(opts, "repeat_penalty"); ok {
		out.RepeatPenalty = v
		overridden = true
	}
	if v, ok := optFloat(opts, "presence_penalty"); ok {
		out.PresencePenalty = v
		overridden = true
	}
	if v, ok := optFloat(opts, "frequency_penalty"); ok {
		out.FrequencyPenalty = v
		overridden = true
	}
	if v, ok := optInt(opts, "seed"); ok {
		out.Seed = v
		overridden = true
	}
	if v, ok := optStrings(opts, "stop"); ok {
		out.Stop = v
		overridden = true
	}
	if v, ok := optString(opts, "grammar"); ok {
		out.Grammar = v
		overridden = true
	}
	if v, ok := optBool(opts, "thinking"); ok {
		out.Thinking = v
		overridden = true
	}

	if !overridden {
		return nil
	}
	return &out
}

func optFloat(opts map[string]any, key string) (float64, bool) {
	v, ok := opts[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func optInt(opts map[string]any, key string) (int, bool) {
	v, ok := opts[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func optBool(opts map[string]any, key string) (bool, bool) {
	b, ok := opts[key].(bool)
	return b, ok
}

func optString(opts map[string]any, key string) (string, bool) {
	s, ok := opts[key].(string)
	return s, ok
}

func optStrings(opts map[string]any, key string) ([]string, bool) {
	v, ok := opts[key]
	if !ok {
		return nil, false
	}
	switch arr := v.(type) {
	case []string:
		return arr, true
	case []any:
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
