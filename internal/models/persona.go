package models

const (
	DefaultGreeting = "Welcome to our health care assistant AI!!"

	DefaultSystemInstruction = "You are an expert in general healthcare matters, you are tasked to engage in conversation " +
		"with patients about health matters asked and provide alternative solution or education. Explain health " +
		"concepts that affect them so that they can understand using analogies and solutions. Use humor and make " +
		"the conversation educational and interesting. Ask questions so that you can better understand the user " +
		"and improve educational experience."
)

// GenerationSettings is applied identically to every model invocation.
type GenerationSettings struct {
	Temperature      float32 `yaml:"temperature" json:"temperature"`
	TopP             float32 `yaml:"top_p" json:"top_p"`
	TopK             int32   `yaml:"top_k" json:"top_k"`
	MaxOutputTokens  int32   `yaml:"max_output_tokens" json:"max_output_tokens"`
	ResponseMIMEType string  `yaml:"response_mime_type" json:"response_mime_type"`
}

// Persona bundles the fixed instruction, greeting and settings of the assistant.
type Persona struct {
	SystemInstruction string             `yaml:"system_instruction"`
	Greeting          string             `yaml:"greeting"`
	Generation        GenerationSettings `yaml:"generation"`
}

func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		Temperature:      1,
		TopP:             0.95,
		TopK:             64,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "text/plain",
	}
}

func DefaultPersona() Persona {
	return Persona{
		SystemInstruction: DefaultSystemInstruction,
		Greeting:          DefaultGreeting,
		Generation:        DefaultGenerationSettings(),
	}
}
