package ninja

// RuleSet carries the optional fields of a Ninja rule declaration. Fields
// left at their zero value are treated as absent and omitted entirely;
// Ninja has no way to represent "set to empty" for these, so there is no
// separate presence flag.
type RuleSet struct {
	Description    string
	Depfile        string
	Generator      bool
	Pool           string
	Restat         bool
	Rspfile        string
	RspfileContent string
	Deps           string
}

// ruleFields returns the RuleSet's fields in the fixed emission order,
// skipping any that are absent.
func (r RuleSet) ruleFields() []kv {
	var out []kv
	if r.Description != "" {
		out = append(out, kv{"description", r.Description})
	}
	if r.Depfile != "" {
		out = append(out, kv{"depfile", r.Depfile})
	}
	if r.Generator {
		out = append(out, kv{"generator", "1"})
	}
	if r.Pool != "" {
		out = append(out, kv{"pool", r.Pool})
	}
	if r.Restat {
		out = append(out, kv{"restat", "1"})
	}
	if r.Rspfile != "" {
		out = append(out, kv{"rspfile", r.Rspfile})
	}
	if r.RspfileContent != "" {
		out = append(out, kv{"rspfile_content", r.RspfileContent})
	}
	if r.Deps != "" {
		out = append(out, kv{"deps", r.Deps})
	}
	return out
}

// BuildSet carries the optional fields of a Ninja build declaration.
type BuildSet struct {
	Inputs          []string
	Implicit        []string
	OrderOnly       []string
	ImplicitOutputs []string
	Variables       map[string]string
	Pool            string
	Dyndep          string
}

type kv struct {
	key, value string
}
