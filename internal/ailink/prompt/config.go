package prompt

// Config describes a prompt definition loaded from YAML front matter.
type Config struct {
	Slug           string    `yaml:"slug" json:"slug"`
	Name           string    `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string    `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string    `yaml:"version,omitempty" json:"version,omitempty"`
	Input          InputSpec `yaml:"input,omitempty" json:"input,omitempty"`
	SystemTemplate string    `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string    `yaml:"user_template,omitempty" json:"user_template,omitempty"`
}

// InputSpec defines prompt input requirements.
type InputSpec struct {
	AcceptsImages bool     `yaml:"accepts_images,omitempty" json:"accepts_images,omitempty"`
	ImageTypes    []string `yaml:"image_types,omitempty" json:"image_types,omitempty"`
	MaxImages     int      `yaml:"max_images,omitempty" json:"max_images,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}
