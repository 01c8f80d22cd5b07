package persona

// Kind 区分角色的用途。
type Kind string

const (
	// KindPhilosopher personas take part in simulated dialogues.
	KindPhilosopher Kind = "philosopher"
	// KindCompanion personas drive the single-turn chat loop.
	KindCompanion Kind = "companion"
)

// Persona captures the role-playing attributes exposed to the frontend.
type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Kind         Kind   `json:"kind"`
	Comedian     bool   `json:"comedian,omitempty"`
	SystemPrompt string `json:"-"`
	Greeting     string `json:"greeting,omitempty"`
	Rejection    string `json:"-"`
	Description  string `json:"description,omitempty"`
}

const defaultRejection = "Your prompt appears to have sensitive data in the body of the text. Please remove this sensitive data and submit a new prompt."

// RejectionMessage returns the reply shown when a prompt trips the
// sensitive-data filter.
func (p Persona) RejectionMessage() string {
	if p.Rejection != "" {
		return p.Rejection
	}
	return defaultRejection
}

// Seed provides the default personas: the philosophers of the conversation
// simulator and the two chat companions.
func Seed() []Persona {
	return []Persona{
		philosopher("alan-watts", "Alan Watts", "Interpreter of Eastern philosophy", false),
		philosopher("anne-lamott", "Anne Lamott", "Writer on faith and grace", false),
		philosopher("brene-brown", "Brene Brown", "Researcher of vulnerability", false),
		philosopher("duncan-trussell", "Duncan Trussell", "Comedian and seeker", true),
		philosopher("eckhart-tolle", "Eckhart Tolle", "Teacher of presence", false),
		philosopher("joseph-campbell", "Joseph Campbell", "Scholar of myth", false),
		philosopher("pete-holmes", "Pete Holmes", "Comedian and spiritual enthusiast", true),
		philosopher("ram-dass", "Ram Dass", "Teacher of loving awareness", false),
		philosopher("socrates", "Socrates", "Questioner of Athens", false),
		{
			ID:           "alfred",
			Name:         "Alfred",
			Title:        "Classy butler",
			Kind:         KindCompanion,
			SystemPrompt: "You are a classy butler, like Alfred from Batman.",
			Greeting:     "Welcome. What would you like to ask?",
			Description:  "A composed gentleman's gentleman with impeccable manners.",
		},
		{
			ID:           "jar-jar",
			Name:         "Jar Jar Binks",
			Title:        "Gungan from Naboo",
			Kind:         KindCompanion,
			SystemPrompt: "You are an assistant that speaks like Jar Jar Binks from Star Wars.",
			Greeting:     "To send mesa a message, just type what yousa would like to say. Mesa waiting to hear from yousah!",
			Rejection: "Meesa sorry, but it looks like yousa prompt contains sensitive information. " +
				"For security reasons, meesa cannot let it through. Please be careful not to include any " +
				"sensitive information in your prompts in the future. If yousa still have a question or concern, " +
				"please submit a new prompt without the sensitive information, and meesa will do our best to help you. " +
				"Thank yousa for your understanding!",
			Description: "A clumsy but good-hearted Gungan.",
		},
	}
}

func philosopher(id, name, title string, comedian bool) Persona {
	return Persona{
		ID:       id,
		Name:     name,
		Title:    title,
		Kind:     KindPhilosopher,
		Comedian: comedian,
	}
}
