package domain

import (
	"path"
	"strings"
)

// Attachment is one certificate or supporting file attached to a record.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewAttachment validates a file name and reduces it to its base name.
func NewAttachment(name, contentType string, data []byte) (Attachment, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return Attachment{}, ErrInvalidAttachment
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Attachment{
		Name:        name,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
	}, nil
}

// ActivityRecord is one logged training activity.
type ActivityRecord struct {
	ID             string
	ActivityName   string
	CompletionDate string
	RawValue       float64
	Credits        float64
	Attachments    []Attachment
}

// NewActivityRecord returns an empty record with the given id.
func NewActivityRecord(id string) (ActivityRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ActivityRecord{}, ErrInvalidID
	}
	return ActivityRecord{
		ID:          id,
		Attachments: []Attachment{},
	}, nil
}

// HasActivity reports whether an activity has been selected.
func (r ActivityRecord) HasActivity() bool {
	return strings.TrimSpace(r.ActivityName) != ""
}

// AttachmentNames returns attachment file names in order.
func (r ActivityRecord) AttachmentNames() []string {
	out := make([]string, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		out = append(out, a.Name)
	}
	return out
}

// Clone deep-copies the record including attachment bytes.
func (r ActivityRecord) Clone() ActivityRecord {
	out := r
	out.Attachments = make([]Attachment, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		a.Data = append([]byte(nil), a.Data...)
		out.Attachments = append(out.Attachments, a)
	}
	return out
}

// Default profile values for a fresh form.
const (
	DefaultPeriod        = "Oct 2020 – Oct 2025"
	DefaultQualification = "Facility Representative"
)

// Profile holds the submitter fields of the form.
type Profile struct {
	Name          string
	Period        string
	Qualification string
}

// DefaultProfile returns the profile of a fresh form.
func DefaultProfile() Profile {
	return Profile{
		Period:        DefaultPeriod,
		Qualification: DefaultQualification,
	}
}
