package protocol

import (
	"encoding/binary"
	"errors"
)

var ErrInvalidSurvey = errors.New("invalid survey response")

// SurveyID identifies a survey template (16 bytes)
type SurveyID [16]byte

// Free-text answers carry this choice value
const SurveyChoiceFreeText uint8 = 0xFF

// SurveyAnswer is one answered question
type SurveyAnswer struct {
	QuestionIndex uint16 // Index into the survey template
	Choice        uint8  // Selected option, or SurveyChoiceFreeText
	FreeText      string // Free-text answer (empty for choice answers)
}

// SurveyResponse is the payload of a KindSurveyResponse transfer: the
// receiver fills in a scanned survey and beams the answers back.
type SurveyResponse struct {
	SurveyID    SurveyID
	RespondedAt int64 // Unix timestamp (ms)
	Answers     []SurveyAnswer
}

// Encode encodes the survey response to bytes
func (s *SurveyResponse) Encode() []byte {
	size := 16 + 8 + 2
	for _, a := range s.Answers {
		size += 2 + 1 + 2 + len(a.FreeText)
	}

	buf := make([]byte, size)
	offset := 0

	copy(buf[offset:], s.SurveyID[:])
	offset += 16

	binary.BigEndian.PutUint64(buf[offset:], uint64(s.RespondedAt))
	offset += 8

	binary.BigEndian.PutUint16(buf[offset:], uint16(len(s.Answers)))
	offset += 2

	for _, a := range s.Answers {
		binary.BigEndian.PutUint16(buf[offset:], a.QuestionIndex)
		offset += 2

		buf[offset] = a.Choice
		offset++

		binary.BigEndian.PutUint16(buf[offset:], uint16(len(a.FreeText)))
		offset += 2

		copy(buf[offset:], a.FreeText)
		offset += len(a.FreeText)
	}

	return buf
}

// Decode decodes the survey response from bytes
func (s *SurveyResponse) Decode(buf []byte) error {
	if len(buf) < 16+8+2 {
		return ErrInvalidSurvey
	}

	offset := 0

	copy(s.SurveyID[:], buf[offset:offset+16])
	offset += 16

	s.RespondedAt = int64(binary.BigEndian.Uint64(buf[offset:]))
	offset += 8

	count := int(binary.BigEndian.Uint16(buf[offset:]))
	offset += 2

	s.Answers = make([]SurveyAnswer, 0, count)

	for i := 0; i < count; i++ {
		if offset+5 > len(buf) {
			return ErrInvalidSurvey
		}

		var a SurveyAnswer

		a.QuestionIndex = binary.BigEndian.Uint16(buf[offset:])
		offset += 2

		a.Choice = buf[offset]
		offset++

		textLen := int(binary.BigEndian.Uint16(buf[offset:]))
		offset += 2

		if offset+textLen > len(buf) {
			return ErrInvalidSurvey
		}
		a.FreeText = string(buf[offset : offset+textLen])
		offset += textLen

		s.Answers = append(s.Answers, a)
	}

	if offset != len(buf) {
		return ErrInvalidSurvey
	}

	return nil
}
