package types

// LabDescriptor describes one interactive lab exercise. It is the document
// an exercise author ships next to the step markdown and scripts, usually
// as index.json.
type LabDescriptor struct {
	// Title is the short human-readable name of the exercise.
	Title string `json:"title" yaml:"title"`
	// Description is a free-text summary.
	Description string `json:"description" yaml:"description"`
	// Details holds the step sequence and the intro/finish sections.
	Details Details `json:"details" yaml:"details"`
	// Backend carries the provisioning hint for the environment.
	Backend Backend `json:"backend" yaml:"backend"`
}

// Details holds the ordered steps plus the optional intro and finish sections.
type Details struct {
	// Steps run in order. A nil slice means the key was absent, an empty
	// slice means it was present but empty.
	Steps  []Step   `json:"steps" yaml:"steps"`
	Intro  *Section `json:"intro,omitempty" yaml:"intro,omitempty"`
	Finish *Section `json:"finish,omitempty" yaml:"finish,omitempty"`
}

// Step is one instructional unit with its verification script.
type Step struct {
	Title string `json:"title" yaml:"title"`
	// Text is the markdown file with the instructions.
	Text string `json:"text" yaml:"text"`
	// Verify is the script the runner executes to check completion.
	Verify string `json:"verify" yaml:"verify"`
	// Background is run by the runner out of sight when the step opens.
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
	// Foreground is run in the learner's terminal when the step opens.
	Foreground string `json:"foreground,omitempty" yaml:"foreground,omitempty"`
}

// Section is intro or finish material shown outside the step sequence.
type Section struct {
	Text string `json:"text" yaml:"text"`
	// CourseData is a setup script run before the section is shown.
	CourseData string `json:"courseData,omitempty" yaml:"courseData,omitempty"`
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
	Foreground string `json:"foreground,omitempty" yaml:"foreground,omitempty"`
}

// Backend identifies the environment template used to provision the lab.
type Backend struct {
	// ImageID is opaque to this package and interpreted by the provisioner.
	ImageID string `json:"imageid" yaml:"imageid"`
}

// Clone returns a deep copy of the descriptor.
func (d *LabDescriptor) Clone() *LabDescriptor {
	if d == nil {
		return nil
	}

	out := *d

	if d.Details.Steps != nil {
		out.Details.Steps = make([]Step, len(d.Details.Steps))
		copy(out.Details.Steps, d.Details.Steps)
	}

	if d.Details.Intro != nil {
		intro := *d.Details.Intro
		out.Details.Intro = &intro
	}

	if d.Details.Finish != nil {
		finish := *d.Details.Finish
		out.Details.Finish = &finish
	}

	return &out
}

// ScenarioSummary is the condensed view of a catalog entry.
type ScenarioSummary struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageID     string `json:"imageid"`
	Steps       int    `json:"steps"`
}
