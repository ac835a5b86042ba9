package profile

// Kind decides how a field is validated and normalized.
type Kind int

const (
	KindText Kind = iota
	KindName
	KindEmail
	KindDate
	KindEnum
	KindChips
)

// Field describes one editable profile field.
type Field struct {
	Name string
	Kind Kind
	// Namespaced fields are stored in the record's profile map and sent
	// under "profile".
	Namespaced bool
	Required   bool
	// Synonyms maps accepted spellings (lower case, single spaces) to the
	// stored value. Only used by KindEnum.
	Synonyms map[string]string
}

func enum(values map[string][]string) map[string]string {
	out := make(map[string]string)
	for canonical, spellings := range values {
		out[canonical] = canonical
		for _, s := range spellings {
			out[s] = canonical
		}
	}
	return out
}

// DefaultSchema is the admissions profile form, in validation order.
var DefaultSchema = []Field{
	{Name: "full_name", Kind: KindName, Required: true},
	{Name: "email", Kind: KindEmail, Required: true},
	{Name: "phone", Kind: KindText},
	{Name: "dob", Kind: KindDate, Namespaced: true},
	{Name: "gender", Kind: KindEnum, Namespaced: true, Synonyms: enum(map[string][]string{
		"male":   {"m", "man", "boy"},
		"female": {"f", "woman", "girl"},
		"other":  {"non-binary", "nonbinary", "nb", "prefer not to say"},
	})},
	{Name: "category", Kind: KindEnum, Namespaced: true, Synonyms: enum(map[string][]string{
		"general": {"gen", "ur", "open", "unreserved"},
		"obc":     {"obc-ncl", "obc ncl", "obc (ncl)"},
		"sc":      {"scheduled caste"},
		"st":      {"scheduled tribe"},
		"ews":     {"gen-ews", "economically weaker section"},
	})},
	{Name: "city", Kind: KindText, Namespaced: true},
	{Name: "state", Kind: KindText, Namespaced: true},
	{Name: "guardian_name", Kind: KindName, Namespaced: true},
	{Name: "target_exam", Kind: KindEnum, Namespaced: true, Synonyms: enum(map[string][]string{
		"jee_main":     {"jee main", "jee-main", "jee mains", "jeemain", "mains"},
		"jee_advanced": {"jee advanced", "jee-advanced", "jee adv", "advanced"},
		"neet":         {"neet-ug", "neet ug"},
		"cuet":         {"cuet-ug", "cuet ug"},
	})},
	{Name: "subjects", Kind: KindChips, Namespaced: true},
	{Name: "preferred_batches", Kind: KindChips, Namespaced: true},
	{Name: "school", Kind: KindText, Namespaced: true},
}
