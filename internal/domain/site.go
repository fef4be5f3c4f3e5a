package domain

// Site is a widget integration, addressed by its public token
type Site struct {
	Token        string       `json:"token" mapstructure:"token"`
	Name         string       `json:"name" mapstructure:"name"`
	Domain       string       `json:"domain" mapstructure:"domain"`
	WidgetConfig WidgetConfig `json:"widget_config" mapstructure:"widget"`
}

// WidgetConfig holds UI configuration for the widget
type WidgetConfig struct {
	Theme          string `json:"theme" mapstructure:"theme"`
	PrimaryColor   string `json:"primary_color" mapstructure:"primary_color"`
	Position       string `json:"position" mapstructure:"position"`
	WelcomeMessage string `json:"welcome_message" mapstructure:"welcome_message"`
	Placeholder    string `json:"placeholder" mapstructure:"placeholder"`
	ShowSources    bool   `json:"show_sources" mapstructure:"show_sources"`
	ShowReasoning  bool   `json:"show_reasoning" mapstructure:"show_reasoning"`
}

// DefaultWidgetConfig returns default widget configuration
func DefaultWidgetConfig() WidgetConfig {
	return WidgetConfig{
		Theme:          "light",
		PrimaryColor:   "#3b82f6",
		Position:       "bottom-right",
		WelcomeMessage: "Hi! How can I help you?",
		Placeholder:    "Ask a question...",
		ShowSources:    true,
		ShowReasoning:  true,
	}
}

// WithDefaults fills zero-valued widget fields from DefaultWidgetConfig
func (w WidgetConfig) WithDefaults() WidgetConfig {
	d := DefaultWidgetConfig()
	if w.Theme == "" {
		w.Theme = d.Theme
	}
	if w.PrimaryColor == "" {
		w.PrimaryColor = d.PrimaryColor
	}
	if w.Position == "" {
		w.Position = d.Position
	}
	if w.WelcomeMessage == "" {
		w.WelcomeMessage = d.WelcomeMessage
	}
	if w.Placeholder == "" {
		w.Placeholder = d.Placeholder
	}
	return w
}
