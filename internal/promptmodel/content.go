// Package promptmodel implements the canonical, provider-agnostic Prompt and
// Message model: multi-part, multi-modal messages and the parameter-binding
// engine that substitutes ${name} placeholders across them.
package promptmodel

// ContentKind identifies which concrete ContentPart variant a part holds.
type ContentKind string

const (
	KindText     ContentKind = "text"
	KindImage    ContentKind = "image"
	KindAudio    ContentKind = "audio"
	KindDocument ContentKind = "document"
	KindBinary   ContentKind = "binary"
)

// ContentPart is one variant of a message's content: plain text, an image
// reference (URL or base64+MIME), an audio reference, a binary blob with a
// declared media type, or a document URL. Every variant carries the raw
// form required by at least one provider; the provider adapter translates
// it into that provider's own content-part shape.
type ContentPart interface {
	Kind() ContentKind
	// isContentPart marks this type as a closed member of the ContentPart
	// union; it is unexported so no package outside promptmodel can add a
	// new variant.
	isContentPart()
}

// TextPart is a plain-text content part. It is the only variant the binding
// engine ever rewrites.
type TextPart struct {
	Text string
}

func (TextPart) Kind() ContentKind { return KindText }
func (TextPart) isContentPart()    {}

// ImagePart references image data either by URL or as base64-encoded bytes
// with a declared MIME type. Exactly one of URL or (Base64Data, MIMEType)
// is expected to be set. The provider adapters do not check this: a part
// that sets neither is sent with an empty URL.
type ImagePart struct {
	URL        string
	Base64Data string
	MIMEType   string
}

func (ImagePart) Kind() ContentKind { return KindImage }
func (ImagePart) isContentPart()    {}

// AudioPart references audio data, by URL or inline base64 bytes.
type AudioPart struct {
	URL        string
	Base64Data string
	MIMEType   string
}

func (AudioPart) Kind() ContentKind { return KindAudio }
func (AudioPart) isContentPart()    {}

// DocumentPart references a document by URL (e.g. a PDF).
type DocumentPart struct {
	URL      string
	MIMEType string
}

func (DocumentPart) Kind() ContentKind { return KindDocument }
func (DocumentPart) isContentPart()    {}

// BinaryPart is an opaque blob with a declared media type, for content that
// does not fit the other variants.
type BinaryPart struct {
	Data      []byte
	MediaType string
}

func (BinaryPart) Kind() ContentKind { return KindBinary }
func (BinaryPart) isContentPart()    {}
