package companion

// FieldKind determines how a canonical field is coerced and which type tag it is written with
type FieldKind int

const (
	KindText FieldKind = iota
	KindMultilineText
	KindInteger
	KindBoolean
	KindList
)

// TypeTag returns the backend attribute type written for this kind
func (k FieldKind) TypeTag() string {
	switch k {
	case KindMultilineText:
		return "multi_line_text_field"
	case KindInteger:
		return "number_integer"
	case KindBoolean:
		return "boolean"
	case KindList:
		return "list.single_line_text_field"
	default:
		return "single_line_text_field"
	}
}

// EmptyEncoding is the canonical encoding of an absent value of this kind
func (k FieldKind) EmptyEncoding() string {
	if k == KindList {
		return EmptyListMarker
	}
	return ""
}

// EmptyListMarker is the encoded form of an empty list
const EmptyListMarker = "[]"

// Canonical field keys
const (
	FieldUserName      = "user_name"
	FieldPassword      = "password"
	FieldFirstName     = "first_name"
	FieldLastName      = "last_name"
	FieldMajor         = "major"
	FieldLocation      = "location"
	FieldDescription   = "description"
	FieldWechatID      = "wechat_id"
	FieldEducation     = "education"
	FieldAge           = "age"
	FieldAgeRange      = "age_range"
	FieldLanguage      = "language"
	FieldAgeGroup      = "age_group"
	FieldSkill         = "skill"
	FieldCertification = "certification"
	FieldAvailability  = "availability"
	FieldBlueCard      = "blue_card"
	FieldPoliceCheck   = "police_check"
	FieldFirstAid      = "first_aid"
)

// Field describes one canonical attribute and the historical keys it may be stored under.
// Aliases are tried in order after the canonical key; the first one present wins.
type Field struct {
	Key     string
	Kind    FieldKind
	Aliases []string
}

// Fields is the canonical field catalog, in write order
var Fields = []Field{
	{Key: FieldUserName, Kind: KindText, Aliases: []string{"username", "email", "login_email"}},
	{Key: FieldPassword, Kind: KindText, Aliases: []string{"password_hash"}},
	{Key: FieldFirstName, Kind: KindText, Aliases: []string{"firstname", "given_name"}},
	{Key: FieldLastName, Kind: KindText, Aliases: []string{"lastname", "surname", "family_name"}},
	{Key: FieldMajor, Kind: KindText, Aliases: []string{"specialty", "profession"}},
	{Key: FieldLocation, Kind: KindText, Aliases: []string{"current_location_in_australia", "current_location", "city"}},
	{Key: FieldDescription, Kind: KindMultilineText, Aliases: []string{"self_introduction", "about_me", "bio"}},
	{Key: FieldWechatID, Kind: KindText, Aliases: []string{"wechat", "wechat_account"}},
	{Key: FieldEducation, Kind: KindText, Aliases: []string{"education_background", "highest_education"}},
	{Key: FieldAge, Kind: KindInteger, Aliases: []string{"current_age"}},
	{Key: FieldAgeRange, Kind: KindText},
	{Key: FieldLanguage, Kind: KindList, Aliases: []string{"languages", "spoken_languages"}},
	{Key: FieldAgeGroup, Kind: KindList, Aliases: []string{"preferred_age_group", "child_age_group"}},
	{Key: FieldSkill, Kind: KindList, Aliases: []string{"skills"}},
	{Key: FieldCertification, Kind: KindList, Aliases: []string{"certifications", "certificates"}},
	{Key: FieldAvailability, Kind: KindList, Aliases: []string{"available_time", "available_days"}},
	{Key: FieldBlueCard, Kind: KindText, Aliases: []string{"has_blue_card", "wwcc_blue_card"}},
	{Key: FieldPoliceCheck, Kind: KindText, Aliases: []string{"has_police_check"}},
	{Key: FieldFirstAid, Kind: KindBoolean, Aliases: []string{"first_aid_certificate"}},
}

var fieldIndex = buildFieldIndex()

// buildFieldIndex maps every canonical key and alias to its field
func buildFieldIndex() map[string]Field {
	idx := make(map[string]Field, len(Fields)*3)
	for _, f := range Fields {
		idx[f.Key] = f
		for _, a := range f.Aliases {
			idx[a] = f
		}
	}
	return idx
}

// LookupField resolves a canonical key or legacy alias to its canonical field
func LookupField(key string) (Field, bool) {
	f, ok := fieldIndex[key]
	return f, ok
}

// IsLegacyAlias returns true if key is a historical alias rather than a canonical key
func IsLegacyAlias(key string) bool {
	f, ok := fieldIndex[key]
	return ok && f.Key != key
}

// RequiredAtCreation lists the fields a new profile must provide
var RequiredAtCreation = []string{
	FieldUserName,
	FieldPassword,
	FieldFirstName,
	FieldLastName,
	FieldMajor,
	FieldLocation,
	FieldDescription,
}
