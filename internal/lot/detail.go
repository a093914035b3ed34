package lot

import (
	"encoding/json"
	"fmt"
)

// Detail is the structured payload stored with a QC validation.  The set
// of implementations is closed: DistributionDetail, BoxCompositionDetail
// and ConsecutiveDetail.  The JSON field names are the ones the dashboard
// already reads.
type Detail interface {
	ValidationType() ValidationType
	FindingList() []Finding
	isDetail()
}

// DistributionDetail carries the whole-lot expected/actual tables.
type DistributionDetail struct {
	Expected map[int64]int `json:"expected"`
	Actual   map[int64]int `json:"actual"`
	Issues   []string      `json:"issues"`
	Findings []Finding     `json:"findings"`
	Message  string        `json:"message,omitempty"`
}

func (DistributionDetail) ValidationType() ValidationType { return DistributionCheck }
func (d DistributionDetail) FindingList() []Finding       { return d.Findings }
func (DistributionDetail) isDetail()                      {}

// BoxCompositionDetail carries the expected per-box counts and the
// realized counts of every box.
type BoxCompositionDetail struct {
	TotalBoxes      int                   `json:"total_boxes"`
	ExpectedPerBox  map[int64]int         `json:"expected_per_box"`
	BoxCompositions map[int]map[int64]int `json:"box_compositions"`
	Issues          []string              `json:"issues"`
	Findings        []Finding             `json:"findings"`
	Message         string                `json:"message,omitempty"`
}

func (BoxCompositionDetail) ValidationType() ValidationType { return BoxComposition }
func (d BoxCompositionDetail) FindingList() []Finding       { return d.Findings }
func (BoxCompositionDetail) isDetail()                      {}

// ConsecutiveDetail lists adjacent coupons that repeat a prize.
type ConsecutiveDetail struct {
	TotalConsecutiveIssues int       `json:"total_consecutive_issues"`
	Issues                 []Finding `json:"issues"`
	Message                string    `json:"message,omitempty"`
}

func (ConsecutiveDetail) ValidationType() ValidationType { return ConsecutiveCheck }
func (d ConsecutiveDetail) FindingList() []Finding       { return d.Issues }
func (ConsecutiveDetail) isDetail()                      {}

// MarshalDetail encodes d for the validation_details column.
func MarshalDetail(d Detail) ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalDetail decodes a stored payload according to the validation
// type recorded next to it.
func UnmarshalDetail(t ValidationType, raw []byte) (Detail, error) {
	switch t {
	case DistributionCheck:
		var d DistributionDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case BoxComposition:
		var d BoxCompositionDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case ConsecutiveCheck:
		var d ConsecutiveDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("lot: unknown validation type %q", t)
}

// errorDetail is the payload recorded for an audit that could not run.
func errorDetail(t ValidationType, err error) Detail {
	switch t {
	case DistributionCheck:
		return DistributionDetail{Message: err.Error()}
	case BoxComposition:
		return BoxCompositionDetail{Message: err.Error()}
	default:
		return ConsecutiveDetail{Message: err.Error()}
	}
}
