package cascade

// Placeholder labels shown as the first, empty-valued option.
const (
	LabelPickRoomFirst = "Selecione a sala primeiro"
	LabelLoading       = "Carregando..."
	LabelPick          = "Selecione..."
	LabelLoadError     = "Erro ao carregar"
)

type Status string

const (
	StatusPlaceholder Status = "placeholder"
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusError       Status = "error"
)

type Option struct {
	Value string
	Label string
}

// Select is the state of one dropdown.
type Select struct {
	Placeholder string
	Options     []Option
	Status      Status
	Selected    string
}

func placeholderSelect(label string, status Status) Select {
	return Select{Placeholder: label, Status: status}
}

// Has reports whether value is one of the real options.
func (s Select) Has(value string) bool {
	for _, o := range s.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Label returns the label of value, or "" when it is not an option.
func (s Select) Label(value string) string {
	for _, o := range s.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return ""
}

func (s Select) clone() Select {
	out := s
	if s.Options != nil {
		out.Options = make([]Option, len(s.Options))
		copy(out.Options, s.Options)
	}
	return out
}
