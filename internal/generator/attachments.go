package generator

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxAttachmentSize caps each attachment individually.
const MaxAttachmentSize = 10 << 20 // 10 MB

// blockedExtensions are executable formats that never make sense as
// generation context.
var blockedExtensions = map[string]bool{
	".exe":   true,
	".dll":   true,
	".so":    true,
	".dylib": true,
	".app":   true,
}

// blockedMIMETypes cover executables that slip past the extension check.
var blockedMIMETypes = map[string]bool{
	"application/x-msdownload":     true,
	"application/x-executable":     true,
	"application/x-mach-binary":    true,
	"application/vnd.microsoft.portable-executable": true,
	"application/x-sharedlib":                       true,
}

// FileAttachment is user-supplied context for a generation request.
type FileAttachment struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

// AttachmentWarning explains why an attachment was dropped. Dropped
// attachments are surfaced as warnings, not failures: the request still
// proceeds with whatever was accepted.
type AttachmentWarning struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// FilterAttachments drops oversized and executable attachments,
// returning the accepted set and a warning per rejection.
func FilterAttachments(attachments []FileAttachment) ([]FileAttachment, []AttachmentWarning) {
	var accepted []FileAttachment
	var warnings []AttachmentWarning

	for _, att := range attachments {
		if len(att.Data) > MaxAttachmentSize {
			warnings = append(warnings, AttachmentWarning{
				Name:   att.Name,
				Reason: fmt.Sprintf("file exceeds %d MB limit", MaxAttachmentSize>>20),
			})
			continue
		}

		ext := strings.ToLower(filepath.Ext(att.Name))
		if blockedExtensions[ext] {
			warnings = append(warnings, AttachmentWarning{
				Name:   att.Name,
				Reason: fmt.Sprintf("executable files (%s) are not allowed", ext),
			})
			continue
		}

		if blockedMIMETypes[strings.ToLower(att.MIME)] {
			warnings = append(warnings, AttachmentWarning{
				Name:   att.Name,
				Reason: "executable content is not allowed",
			})
			continue
		}

		accepted = append(accepted, att)
	}

	return accepted, warnings
}

// describeAttachment renders an attachment as prompt context. Textual
// attachments are inlined; binary ones are referenced by name only.
func describeAttachment(att FileAttachment) string {
	if utf8.Valid(att.Data) && !strings.HasPrefix(att.MIME, "image/") {
		return fmt.Sprintf("--- attachment %q ---\n%s\n", att.Name, att.Data)
	}
	return fmt.Sprintf("--- attachment %q (%s, %d bytes, content omitted) ---\n", att.Name, att.MIME, len(att.Data))
}
