package model

// Language maps a client-facing key to the internal language id and the id
// the external judge expects. The set of supported languages is a fixed
// table; unknown keys are rejected at the API boundary.
type Language struct {
	Key        string `json:"key"`
	InternalID int    `json:"internal_id"`
	JudgeID    int    `json:"judge_id"`
	Name       string `json:"name"`
}

var languageTable = []Language{
	{Key: "js", InternalID: 1, JudgeID: 63, Name: "JavaScript"},
	{Key: "cpp", InternalID: 2, JudgeID: 54, Name: "C++"},
	{Key: "python", InternalID: 3, JudgeID: 71, Name: "Python"},
}

func LanguageByKey(key string) (Language, bool) {
	for _, l := range languageTable {
		if l.Key == key {
			return l, true
		}
	}
	return Language{}, false
}

func LanguageByInternalID(id int) (Language, bool) {
	for _, l := range languageTable {
		if l.InternalID == id {
			return l, true
		}
	}
	return Language{}, false
}

// Languages returns the supported language table in a stable order.
func Languages() []Language {
	out := make([]Language, len(languageTable))
	copy(out, languageTable)
	return out
}
