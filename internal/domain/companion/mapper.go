package companion

import "sort"

// Mapper converts native catalog records into Companions
type Mapper struct {
	codec *Codec
}

// NewMapper creates a mapper decoding attributes with codec
func NewMapper(codec *Codec) *Mapper {
	return &Mapper{codec: codec}
}

// ToDomain converts a record into a Companion. The first image by position
// becomes the cover image.
func (m *Mapper) ToDomain(r Record) *Companion {
	images := make([]Image, 0, len(r.Images))
	for _, img := range r.Images {
		images = append(images, Image{
			URL:      img.Src,
			Alt:      img.Alt,
			Position: img.Position,
		})
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Position < images[j].Position
	})

	c := &Companion{
		ID:          r.ID,
		Title:       r.Title,
		Status:      r.Status,
		Vendor:      r.Vendor,
		ProductType: r.ProductType,
		Tags:        r.Tags,
		BodyHTML:    r.BodyHTML,
		Images:      images,
		Profile:     m.codec.Decode(r.Attributes),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(images) > 0 {
		first := images[0]
		c.Image = &first
	}
	return c
}

// ToDomainList converts records in order
func (m *Mapper) ToDomainList(records []Record) []*Companion {
	out := make([]*Companion, 0, len(records))
	for _, r := range records {
		out = append(out, m.ToDomain(r))
	}
	return out
}
