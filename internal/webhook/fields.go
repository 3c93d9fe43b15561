package webhook

// Field describes one user-editable field of a webhook registration.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Help  string `json:"help"`
}

// fields is fixed at build time and never modified.
var fields = [...]Field{
	{
		Name:  "name",
		Label: "Name",
		Help:  "Give your webhook a descriptive name (e.g. Notify ACME Slack channel of any new ArchiveResults).",
	},
	{
		Name:  "signal",
		Label: "Signal",
		Help:  "The type of event the webhook should fire for (e.g. Create, Update, Delete).",
	},
	{
		Name:  "ref",
		Label: "Ref",
		Help:  "Dot import notation of the model the webhook should fire for (e.g. core.models.Snapshot or core.models.ArchiveResult).",
	},
	{
		Name:  "endpoint",
		Label: "Endpoint",
		Help:  "External URL to POST the webhook notification to (e.g. https://someapp.example.com/webhook/some-webhook-receiver).",
	},
}

// Fields returns the field metadata in display order. The result is a copy.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields[:])
	return out
}

// FieldHelp returns the help text for the named field.
func FieldHelp(name string) (string, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Help, true
		}
	}
	return "", false
}
