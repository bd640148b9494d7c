package storage

import (
	"encoding/hex"
	"fmt"

	"github.com/glyphapp/glyph-node/pkg/protocol"
)

// ===== SURVEY OPERATIONS =====

// SaveSurveyResponse stores one collected response. The answers are
// kept in their wire encoding, encrypted at rest.
func (s *Store) SaveSurveyResponse(resp *protocol.SurveyResponse) error {
	encoded := resp.Encode()
	sealed, err := s.seal(encoded)
	if err != nil {
		return fmt.Errorf("failed to encrypt response: %v", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO survey_responses (survey_id, responded_at, answers) VALUES (?, ?, ?)`,
		hex.EncodeToString(resp.SurveyID[:]),
		resp.RespondedAt,
		sealed,
	)
	if err != nil {
		return fmt.Errorf("failed to save response: %v", err)
	}
	return nil
}

// GetSurveyResponses retrieves all responses collected for a survey,
// newest first.
func (s *Store) GetSurveyResponses(surveyID protocol.SurveyID) ([]*protocol.SurveyResponse, error) {
	rows, err := s.db.Query(
		`SELECT answers FROM survey_responses WHERE survey_id = ? ORDER BY responded_at DESC`,
		hex.EncodeToString(surveyID[:]),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []*protocol.SurveyResponse
	for rows.Next() {
		var sealed []byte
		if err := rows.Scan(&sealed); err != nil {
			return nil, err
		}
		encoded, err := s.unseal(sealed)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt response: %v", err)
		}
		var resp protocol.SurveyResponse
		if err := resp.Decode(encoded); err != nil {
			return nil, fmt.Errorf("failed to decode response: %v", err)
		}
		responses = append(responses, &resp)
	}

	return responses, rows.Err()
}
