// Package submission turns a finished form into a deliverable package: a details table plus attachment files.
package submission

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/hylla/ctrain/internal/domain"
)

// CSVFileName is the name of the details table inside a package.
const CSVFileName = "submission_details.csv"

// CertificatesDir holds attachment files inside a package.
const CertificatesDir = "certificates"

// timestampLayout formats the package root suffix.
const timestampLayout = "20060102T150405Z"

// Columns lists the details table header in order.
var Columns = []string{
	"Name",
	"5-Year Period",
	"Qualification Standard",
	"Credit Goal",
	"Activity",
	"Date Completed",
	"Credits Earned",
	"Attached Files",
}

// ErrMissingProfile and related errors report incomplete forms.
var (
	ErrMissingProfile = errors.New("name and period are required")
	ErrNoActivities   = errors.New("no training activities")
)

// unsafeNameChars matches everything SanitizeName replaces.
var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// validate checks header struct tags.
var validate = validator.New()

// Header carries the submitter fields repeated on every row.
type Header struct {
	Name          string  `validate:"required"`
	Period        string  `validate:"required"`
	Qualification string
	Goal          float64 `validate:"gte=0"`
}

// Row is one line of the details table.
type Row struct {
	Name          string   `json:"name"`
	Period        string   `json:"period"`
	Qualification string   `json:"qualification"`
	Goal          float64  `json:"goal"`
	Activity      string   `json:"activity"`
	Date          string   `json:"date"`
	Credits       float64  `json:"credits"`
	Files         []string `json:"files"`
}

// Values returns the row's cells in column order.
func (r Row) Values() []string {
	return []string{
		r.Name,
		r.Period,
		r.Qualification,
		formatNumber(r.Goal),
		r.Activity,
		r.Date,
		formatNumber(r.Credits),
		strings.Join(r.Files, "; "),
	}
}

// File is one attachment placed in the package.
type File struct {
	Path        string
	Name        string
	ContentType string
	Data        []byte
}

// Package is the finalized, sink-independent submission.
type Package struct {
	Header       Header
	SafeName     string
	Root         string
	CreatedAt    time.Time
	Rows         []Row
	CSV          []byte
	Files        []File
	TotalCredits float64
	Complete     bool
}

// ArchiveName returns the download name used for zip packages.
func (p Package) ArchiveName() string {
	return "training_submission_" + p.SafeName + ".zip"
}

// Receipt describes where a sink delivered a package.
type Receipt struct {
	Sink        string    `json:"sink"`
	Location    string    `json:"location"`
	Files       int       `json:"files"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Validate checks the header and that at least one record names an activity.
func Validate(h Header, records []domain.ActivityRecord) error {
	h.Name = strings.TrimSpace(h.Name)
	h.Period = strings.TrimSpace(h.Period)
	if err := validate.Struct(h); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				switch fe.Field() {
				case "Name", "Period":
					return ErrMissingProfile
				}
			}
		}
		return fmt.Errorf("validate submission header: %w", err)
	}
	for _, r := range records {
		if r.HasActivity() {
			return nil
		}
	}
	return ErrNoActivities
}

// Build validates the form and assembles the package. Records without an activity are dropped.
func Build(h Header, records []domain.ActivityRecord, now time.Time) (Package, error) {
	if err := Validate(h, records); err != nil {
		return Package{}, err
	}
	h.Name = strings.TrimSpace(h.Name)
	h.Period = strings.TrimSpace(h.Period)

	now = now.UTC()
	safe := SanitizeName(h.Name)
	pkg := Package{
		Header:    h,
		SafeName:  safe,
		Root:      safe + "_" + now.Format(timestampLayout),
		CreatedAt: now,
		Rows:      RowsFor(h, records),
		Files:     make([]File, 0),
	}

	kept := 0
	for _, r := range records {
		if !r.HasActivity() {
			continue
		}
		kept++
		pkg.TotalCredits += r.Credits
		for _, a := range r.Attachments {
			pkg.Files = append(pkg.Files, File{
				Path:        AttachmentPath(kept, a.Name),
				Name:        a.Name,
				ContentType: a.ContentType,
				Data:        append([]byte(nil), a.Data...),
			})
		}
	}
	pkg.Complete = pkg.TotalCredits >= h.Goal
	pkg.CSV = EncodeCSV(pkg.Rows)
	return pkg, nil
}

// RowsFor returns one details row per record that names an activity. It does not validate.
func RowsFor(h Header, records []domain.ActivityRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		if !r.HasActivity() {
			continue
		}
		rows = append(rows, Row{
			Name:          strings.TrimSpace(h.Name),
			Period:        strings.TrimSpace(h.Period),
			Qualification: h.Qualification,
			Goal:          h.Goal,
			Activity:      r.ActivityName,
			Date:          r.CompletionDate,
			Credits:       r.Credits,
			Files:         r.AttachmentNames(),
		})
	}
	return rows
}

// AttachmentPath returns the package-relative path of one attachment. position is 1-based.
func AttachmentPath(position int, fileName string) string {
	return CertificatesDir + "/" + strconv.Itoa(position) + "_" + fileName
}

// SanitizeName replaces every character outside ASCII letters and digits with an underscore, then
// lowercases. Characters outside the basic multilingual plane become two underscores, one per UTF-16 unit.
func SanitizeName(name string) string {
	safe := strings.ToLower(unsafeNameChars.ReplaceAllStringFunc(name, func(m string) string {
		r, _ := utf8.DecodeRuneInString(m)
		if n := utf16.RuneLen(r); n > 1 {
			return strings.Repeat("_", n)
		}
		return "_"
	}))
	if safe == "" {
		return "user"
	}
	return safe
}

// UserMessage returns the one-line message shown for a failed submission.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingProfile):
		return "Name & 5-Year Period are required."
	case errors.Is(err, ErrNoActivities):
		return "Please add at least one training activity."
	default:
		return "Could not create the submission package. Please try again."
	}
}

// formatNumber renders credits and goals without trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
