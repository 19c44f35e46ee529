package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/bhoomash/publicwayservice-sub000/internal/dto"
	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	appErrors "github.com/bhoomash/publicwayservice-sub000/pkg/errors"
)

const (
	defaultMinBodyLength  = 20
	defaultMaxTitleLength = 200
	derivedTitleLength    = 80
	minPrintableRatio     = 0.6
	documentRetryHint     = "retry with a clearer document"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// NormalizerConfig tunes intake validation.
type NormalizerConfig struct {
	MinBodyLength     int
	MinDocumentLength int
	MaxTitleLength    int
}

// Normalizer turns raw intake input into a canonical SubmissionDraft. It is pure.
type Normalizer struct {
	cfg      NormalizerConfig
	validate *validator.Validate
}

type contactFields struct {
	Phone string `validate:"omitempty,phone"`
	Email string `validate:"omitempty,email,max=254"`
}

// NewNormalizer constructs a Normalizer.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	if cfg.MinBodyLength <= 0 {
		cfg.MinBodyLength = defaultMinBodyLength
	}
	if cfg.MinDocumentLength <= 0 {
		cfg.MinDocumentLength = cfg.MinBodyLength
	}
	if cfg.MaxTitleLength <= 0 {
		cfg.MaxTitleLength = defaultMaxTitleLength
	}
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(compactPhone(fl.Field().String()))
	})
	return &Normalizer{cfg: cfg, validate: v}
}

// Normalize validates and canonicalises in according to its source kind.
func (n *Normalizer) Normalize(in dto.SubmissionInput) (*models.SubmissionDraft, error) {
	var (
		draft *models.SubmissionDraft
		err   error
	)
	switch in.Kind {
	case models.SourceText:
		draft, err = n.normalizeText(in)
	case models.SourceDocument:
		draft, err = n.normalizeDocument(in)
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unsupported source kind %q", in.Kind))
	}
	if err != nil {
		return nil, err
	}

	if err := n.applyDeclared(draft, in); err != nil {
		return nil, err
	}
	if err := n.applyContact(draft, in); err != nil {
		return nil, err
	}
	draft.Location = collapseLine(in.Location)
	return draft, nil
}

func (n *Normalizer) normalizeText(in dto.SubmissionInput) (*models.SubmissionDraft, error) {
	title := collapseLine(in.Title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "title is required")
	}
	if utf8.RuneCountInString(title) > n.cfg.MaxTitleLength {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("title must be at most %d characters", n.cfg.MaxTitleLength))
	}
	body := cleanText(in.Body)
	if utf8.RuneCountInString(body) < n.cfg.MinBodyLength {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("description must be at least %d characters", n.cfg.MinBodyLength))
	}
	return &models.SubmissionDraft{
		Title:      title,
		Body:       body,
		SourceKind: models.SourceText,
	}, nil
}

func (n *Normalizer) normalizeDocument(in dto.SubmissionInput) (*models.SubmissionDraft, error) {
	ref := strings.TrimSpace(in.AttachmentRef)
	if ref == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "attachmentRef is required for document submissions")
	}
	if reason := unreadableReason(in.Body); reason != "" {
		return nil, unprocessable(reason)
	}
	body := cleanText(in.Body)
	if utf8.RuneCountInString(body) < n.cfg.MinDocumentLength {
		return nil, unprocessable("extracted text is too short")
	}

	title := collapseLine(in.Title)
	if title == "" {
		title = deriveTitle(body)
	}
	if utf8.RuneCountInString(title) > n.cfg.MaxTitleLength {
		title = truncateRunes(title, n.cfg.MaxTitleLength)
	}
	return &models.SubmissionDraft{
		Title:         title,
		Body:          body,
		SourceKind:    models.SourceDocument,
		AttachmentRef: &ref,
	}, nil
}

func (n *Normalizer) applyDeclared(draft *models.SubmissionDraft, in dto.SubmissionInput) error {
	if raw := strings.TrimSpace(in.Category); raw != "" {
		cat, err := models.ParseCategory(raw)
		if err != nil {
			return appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unknown category %q", raw))
		}
		draft.DeclaredCategory = &cat
	}
	if raw := strings.TrimSpace(in.Urgency); raw != "" {
		urg, err := models.ParseUrgency(raw)
		if err != nil {
			return appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unknown urgency %q", raw))
		}
		draft.DeclaredUrgency = &urg
	}
	return nil
}

func (n *Normalizer) applyContact(draft *models.SubmissionDraft, in dto.SubmissionInput) error {
	contact := contactFields{
		Phone: strings.TrimSpace(in.ContactPhone),
		Email: strings.ToLower(strings.TrimSpace(in.ContactEmail)),
	}
	if err := n.validate.Struct(contact); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
		}
		return appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("invalid contact %s", strings.Join(fields, ", ")))
	}
	draft.Contact = models.Contact{Phone: contact.Phone, Email: contact.Email}
	return nil
}

func unprocessable(reason string) error {
	return appErrors.WithDetails(appErrors.ErrUnprocessableDocument, "", map[string]interface{}{
		"reason": reason,
		"hint":   documentRetryHint,
	})
}

// unreadableReason reports why raw extracted text looks binary or empty.
func unreadableReason(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "no text could be extracted"
	}
	if !utf8.ValidString(raw) {
		return "extracted text is not valid UTF-8"
	}
	if strings.ContainsRune(raw, 0) {
		return "extracted text contains binary data"
	}
	var total, readable int
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsPunct(r) {
			readable++
		}
	}
	if total == 0 || float64(readable)/float64(total) < minPrintableRatio {
		return "extracted text is mostly unreadable"
	}
	return ""
}

// cleanText strips control characters, collapses horizontal whitespace and
// keeps at most one blank line between paragraphs.
func cleanText(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = collapseLine(line)
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// collapseLine drops control characters and folds whitespace runs into one space.
func collapseLine(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	space := false
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r), r == utf8.RuneError, r == '\uFEFF':
			continue
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// deriveTitle takes the first line or sentence of body, capped in length.
func deriveTitle(body string) string {
	first := body
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if i := strings.IndexAny(first, ".!?"); i > 0 {
		first = first[:i]
	}
	first = strings.TrimSpace(first)
	if utf8.RuneCountInString(first) > derivedTitleLength {
		cut := truncateRunes(first, derivedTitleLength)
		if i := strings.LastIndexByte(cut, ' '); i > derivedTitleLength/2 {
			cut = cut[:i]
		}
		first = strings.TrimSpace(cut)
	}
	return first
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func compactPhone(raw string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(raw)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
