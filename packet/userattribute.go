package packet

import (
	"io"
)

// UserAttribute is a user attribute packet: a bag of subpackets, in
// practice always a single JPEG photo. The contents are carried raw;
// signatures cover them byte for byte. See RFC 4880, section 5.12.
type UserAttribute struct {
	Contents []byte
}

func (uat *UserAttribute) Tag() Tag { return TagUserAttribute }

func (uat *UserAttribute) parse(body []byte) error {
	uat.Contents = body
	return nil
}

// Serialize writes the user attribute packet, framed, to w.
func (uat *UserAttribute) Serialize(w io.Writer) error {
	if err := serializeHeader(w, TagUserAttribute, len(uat.Contents)); err != nil {
		return err
	}
	_, err := w.Write(uat.Contents)
	return err
}

// ImageData returns zero or more byte slices, each containing image
// data found in the attribute's image subpackets, without decoding
// the image header.
func (uat *UserAttribute) ImageData() [][]byte {
	var images [][]byte
	data := uat.Contents
	for len(data) > 0 {
		var length uint32
		switch {
		case data[0] < 192:
			length = uint32(data[0])
			data = data[1:]
		case data[0] < 255:
			if len(data) < 2 {
				return images
			}
			length = uint32(data[0]-192)<<8 + uint32(data[1]) + 192
			data = data[2:]
		default:
			if len(data) < 5 {
				return images
			}
			length = uint32(data[1])<<24 | uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4])
			data = data[5:]
		}
		if length == 0 || uint32(len(data)) < length {
			return images
		}
		// Image subpackets start with a 16 byte header, of which
		// only the format octet matters here.
		if data[0] == 1 && length > 17 {
			images = append(images, data[17:length])
		}
		data = data[length:]
	}
	return images
}
