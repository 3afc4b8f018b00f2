package companion

import (
	"strconv"
	"strings"
)

// Profile is the structured view of a companion's flat attribute set.
// Scalar fields hold their encoded string form; an empty string means absent.
type Profile struct {
	UserName    string `json:"user_name"`
	Password    string `json:"-"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Major       string `json:"major"`
	Location    string `json:"location"`
	Description string `json:"description"`
	WechatID    string `json:"wechat_id,omitempty"`
	Education   string `json:"education,omitempty"`
	Age         string `json:"age,omitempty"`
	AgeRange    string `json:"age_range,omitempty"`

	Language      []string `json:"language,omitempty"`
	AgeGroup      []string `json:"age_group,omitempty"`
	Skill         []string `json:"skill,omitempty"`
	Certification []string `json:"certification,omitempty"`
	Availability  []string `json:"availability,omitempty"`

	// Tri-state text: 是 / 否 / 申请中
	BlueCard    string `json:"blue_card,omitempty"`
	PoliceCheck string `json:"police_check,omitempty"`

	// Boolean, normalised to "true" / "false"
	FirstAid string `json:"first_aid,omitempty"`
}

// DisplayName returns first_name + " " + last_name, trimmed
func (p *Profile) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Public returns a copy of the profile without the password hash
func (p Profile) Public() Profile {
	p.Password = ""
	return p
}

// RefreshDerived recomputes fields that are derived from other fields
func (p *Profile) RefreshDerived() {
	p.AgeRange = AgeRangeFor(p.Age)
}

// scalar returns a pointer to the scalar field stored under a canonical key
func (p *Profile) scalar(key string) *string {
	switch key {
	case FieldUserName:
		return &p.UserName
	case FieldPassword:
		return &p.Password
	case FieldFirstName:
		return &p.FirstName
	case FieldLastName:
		return &p.LastName
	case FieldMajor:
		return &p.Major
	case FieldLocation:
		return &p.Location
	case FieldDescription:
		return &p.Description
	case FieldWechatID:
		return &p.WechatID
	case FieldEducation:
		return &p.Education
	case FieldAge:
		return &p.Age
	case FieldAgeRange:
		return &p.AgeRange
	case FieldBlueCard:
		return &p.BlueCard
	case FieldPoliceCheck:
		return &p.PoliceCheck
	case FieldFirstAid:
		return &p.FirstAid
	default:
		return nil
	}
}

// list returns a pointer to the list field stored under a canonical key
func (p *Profile) list(key string) *[]string {
	switch key {
	case FieldLanguage:
		return &p.Language
	case FieldAgeGroup:
		return &p.AgeGroup
	case FieldSkill:
		return &p.Skill
	case FieldCertification:
		return &p.Certification
	case FieldAvailability:
		return &p.Availability
	default:
		return nil
	}
}

// AgeRangeFor derives the age bracket shown in listings. Ages that do not
// parse, or are below 18, have no bracket.
func AgeRangeFor(age string) string {
	n, err := strconv.Atoi(strings.TrimSpace(age))
	if err != nil || n < 18 {
		return ""
	}
	switch {
	case n < 25:
		return "18-24"
	case n < 35:
		return "25-34"
	case n < 45:
		return "35-44"
	case n < 55:
		return "45-54"
	default:
		return "55+"
	}
}
