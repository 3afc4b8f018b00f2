package companion

import (
	"strings"

	"github.com/companiondir/backend/internal/domain/companion"
)

// ImageUpload is an image file received from a profile owner
type ImageUpload struct {
	Filename    string
	ContentType string
	Alt         string
	Data        []byte
}

// ProfileInput holds the editable profile fields submitted by an owner
type ProfileInput struct {
	UserName    string `json:"user_name" validate:"required,email,max=254"`
	FirstName   string `json:"first_name" validate:"required,max=50"`
	LastName    string `json:"last_name" validate:"required,max=50"`
	Major       string `json:"major" validate:"max=100"`
	Location    string `json:"location" validate:"max=100"`
	Description string `json:"description" validate:"max=5000"`
	WechatID    string `json:"wechat_id" validate:"max=50"`
	Education   string `json:"education" validate:"max=100"`
	Age         string `json:"age" validate:"omitempty,numeric,max=3"`

	Language      []string `json:"language" validate:"max=20,dive,max=50"`
	AgeGroup      []string `json:"age_group" validate:"max=20,dive,max=50"`
	Skill         []string `json:"skill" validate:"max=20,dive,max=50"`
	Certification []string `json:"certification" validate:"max=20,dive,max=50"`
	Availability  []string `json:"availability" validate:"max=20,dive,max=50"`

	BlueCard    string `json:"blue_card" validate:"omitempty,oneof=是 否 申请中"`
	PoliceCheck string `json:"police_check" validate:"omitempty,oneof=是 否 申请中"`
	FirstAid    string `json:"first_aid"`
}

// ToProfile converts the input into a domain profile without a password
func (in ProfileInput) ToProfile() companion.Profile {
	return companion.Profile{
		UserName:      NormalizeHandle(in.UserName),
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Major:         strings.TrimSpace(in.Major),
		Location:      strings.TrimSpace(in.Location),
		Description:   strings.TrimSpace(in.Description),
		WechatID:      strings.TrimSpace(in.WechatID),
		Education:     strings.TrimSpace(in.Education),
		Age:           strings.TrimSpace(in.Age),
		Language:      in.Language,
		AgeGroup:      in.AgeGroup,
		Skill:         in.Skill,
		Certification: in.Certification,
		Availability:  in.Availability,
		BlueCard:      strings.TrimSpace(in.BlueCard),
		PoliceCheck:   strings.TrimSpace(in.PoliceCheck),
		FirstAid:      strings.TrimSpace(in.FirstAid),
	}
}

// CreateInput contains input for creating a companion profile
type CreateInput struct {
	ProfileInput
	Password string `json:"password" validate:"required,min=6,max=72"`
	Images   []ImageUpload
}

// CreateResult reports what a creation actually persisted
type CreateResult struct {
	Companion         *companion.Companion
	AttributesWritten int
	ImagesPersisted   int
	// Partial is set when the record exists but some later step did not fully apply
	Partial *companion.PartialWriteError
}

// UpdateInput contains input for updating a companion profile
type UpdateInput struct {
	ID int64
	ProfileInput
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"omitempty,min=6,max=72"`
	NewImages       []ImageUpload
	// RemoveImageIndices are 0-based indices into the current image list
	RemoveImageIndices []int
}

// UpdateResult reports the outcome of an update
type UpdateResult struct {
	Companion         *companion.Companion
	AttributesWritten int
	AttributesDeleted int
	ImagesKept        int
	ImagesAdded       int
	TitleChanged      bool
	Resubmitted       bool
}

// SearchQuery selects one page of the public listing
type SearchQuery struct {
	Query  string
	Cities []string
	Page   int
}

// SearchResult is one page of the public listing
type SearchResult struct {
	Items      []companion.Companion `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// NormalizeHandle trims and lower-cases a login handle
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
