package util

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// UploadRule pairs an accepted extension with its sniffed content type and size cap.
type UploadRule struct {
	Ext     string
	MIME    string
	MaxSize int64
}

const (
	MiB = 1 << 20

	// SniffLen is how many leading bytes content detection looks at.
	SniffLen = 512
)

var AttachmentRules = []UploadRule{
	{Ext: ".jpg", MIME: "image/jpeg", MaxSize: 2 * MiB},
	{Ext: ".jpeg", MIME: "image/jpeg", MaxSize: 2 * MiB},
	{Ext: ".png", MIME: "image/png", MaxSize: 2 * MiB},
	{Ext: ".pdf", MIME: "application/pdf", MaxSize: 5 * MiB},
	{Ext: ".txt", MIME: "text/plain", MaxSize: 1 * MiB},
}

var ProfilePictureRules = []UploadRule{
	{Ext: ".jpg", MIME: "image/jpeg", MaxSize: 2 * MiB},
	{Ext: ".jpeg", MIME: "image/jpeg", MaxSize: 2 * MiB},
	{Ext: ".png", MIME: "image/png", MaxSize: 2 * MiB},
}

// MaxSize returns the largest size any rule accepts.
func MaxSize(rules []UploadRule) int64 {
	var limit int64
	for _, rule := range rules {
		if rule.MaxSize > limit {
			limit = rule.MaxSize
		}
	}
	return limit
}

// DetectMIME sniffs the media type of head, dropping parameters such as charset.
func DetectMIME(head []byte) string {
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}

	detected := http.DetectContentType(head)
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(detected))
	}

	return mediaType
}

// MatchUpload finds the rule whose extension matches filename and whose MIME
// matches the sniffed type. ok is false when no rule accepts the pair.
func MatchUpload(rules []UploadRule, filename string, sniffedMIME string) (UploadRule, bool) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	sniffedMIME = strings.ToLower(strings.TrimSpace(sniffedMIME))

	for _, rule := range rules {
		if rule.Ext == ext && rule.MIME == sniffedMIME {
			return rule, true
		}
	}

	return UploadRule{}, false
}
