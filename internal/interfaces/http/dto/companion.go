package dto

import "github.com/companiondir/backend/internal/domain/companion"

// ProfileForm holds the editable profile fields of a multipart submission.
// List fields accept repeated values or a single comma-separated value.
type ProfileForm struct {
	UserName    string `form:"user_name"`
	FirstName   string `form:"first_name"`
	LastName    string `form:"last_name"`
	Major       string `form:"major"`
	Location    string `form:"location"`
	Description string `form:"description"`
	WechatID    string `form:"wechat_id"`
	Education   string `form:"education"`
	Age         string `form:"age"`

	Language      []string `form:"language"`
	AgeGroup      []string `form:"age_group"`
	Skill         []string `form:"skill"`
	Certification []string `form:"certification"`
	Availability  []string `form:"availability"`

	BlueCard    string `form:"blue_card"`
	PoliceCheck string `form:"police_check"`
	FirstAid    string `form:"first_aid"`
}

// CreateCompanionRequest is the multipart form of a registration.
// Image files are sent under the "images" field.
type CreateCompanionRequest struct {
	ProfileForm
	Password string `form:"password"`
}

// UpdateCompanionRequest is the multipart form of a profile edit.
// New image files are sent under the "new_images" field.
type UpdateCompanionRequest struct {
	ProfileForm
	CurrentPassword string `form:"current_password"`
	NewPassword     string `form:"new_password"`
	// RemoveImages are 0-based indices into the current image list
	RemoveImages []int `form:"remove_images"`
}

// SearchCompanionsRequest selects one page of the public listing
type SearchCompanionsRequest struct {
	Query  string   `form:"q" binding:"max=200"`
	Cities []string `form:"city" binding:"max=20"`
	Page   int      `form:"page,default=1"`
}

// HandleExistsRequest asks whether a user name is registered
type HandleExistsRequest struct {
	UserName string `form:"user_name" binding:"required,max=254"`
}

// PartialWriteResponse reports the parts of a creation that did not apply
type PartialWriteResponse struct {
	AttributesFailed int      `json:"attributes_failed"`
	FailedAttributes []string `json:"failed_attributes,omitempty"`
	ImagesRequested  int      `json:"images_requested"`
	ImagesPersisted  int      `json:"images_persisted"`
	CollectionAdded  bool     `json:"collection_added"`
	StatusSet        bool     `json:"status_set"`
	Hint             string   `json:"hint"`
}

// CreateCompanionResponse is returned after a registration
type CreateCompanionResponse struct {
	Companion         *companion.Companion  `json:"companion"`
	AttributesWritten int                   `json:"attributes_written"`
	ImagesPersisted   int                   `json:"images_persisted"`
	Partial           *PartialWriteResponse `json:"partial,omitempty"`
}

// UpdateCompanionResponse is returned after a profile edit
type UpdateCompanionResponse struct {
	Companion         *companion.Companion `json:"companion"`
	AttributesWritten int                  `json:"attributes_written"`
	AttributesDeleted int                  `json:"attributes_deleted"`
	ImagesKept        int                  `json:"images_kept"`
	ImagesAdded       int                  `json:"images_added"`
	Resubmitted       bool                 `json:"resubmitted"`
}

// HandleExistsResponse answers a user name lookup
type HandleExistsResponse struct {
	UserName string `json:"user_name"`
	Exists   bool   `json:"exists"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
