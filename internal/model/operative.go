package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OperativeStatus is the lifecycle state of an operative. ACTIVE -> CONCLUDED is
// the only transition.
type OperativeStatus string

const (
	StatusActive    OperativeStatus = "ACTIVE"
	StatusConcluded OperativeStatus = "CONCLUDED"
)

// Shift is the patrol shift an operative is registered under.
type Shift string

const (
	ShiftFirst  Shift = "FIRST"
	ShiftSecond Shift = "SECOND"
	ShiftDaily  Shift = "DAILY"
)

// ParseShift accepts canonical and legacy shift names.
func ParseShift(s string) (Shift, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "FIRST", "PRIMERO":
		return ShiftFirst, nil
	case "SECOND", "SEGUNDO":
		return ShiftSecond, nil
	case "DAILY", "DIARIO":
		return ShiftDaily, nil
	}
	return "", fmt.Errorf("unknown shift %q", s)
}

// ResultType classifies how an operative ended.
type ResultType string

const (
	ResultDeterrence         ResultType = "DETERRENCE"
	ResultDetainedCivicJudge ResultType = "DETAINED_TO_CIVIC_JUDGE"
	ResultReferredProsecutor ResultType = "REFERRED_TO_PROSECUTOR"
)

// ParseResult accepts canonical and legacy result names.
func ParseResult(s string) (ResultType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DETERRENCE", "DISUACION":
		return ResultDeterrence, nil
	case "DETAINED_TO_CIVIC_JUDGE", "DETENIDOS AL JUEZ CIVICO":
		return ResultDetainedCivicJudge, nil
	case "REFERRED_TO_PROSECUTOR", "PUESTA A LA FISCALIA":
		return ResultReferredProsecutor, nil
	}
	return "", fmt.Errorf("unknown result %q", s)
}

// Label is the Spanish text used in reports.
func (r ResultType) Label() string {
	switch r {
	case ResultDeterrence:
		return "DISUACION"
	case ResultDetainedCivicJudge:
		return "DETENIDOS AL JUEZ CIVICO"
	case ResultReferredProsecutor:
		return "PUESTA A LA FISCALIA"
	}
	return string(r)
}

// UnmarshalJSON accepts legacy labels as well as the canonical names.
func (r *ResultType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseResult(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Label is the Spanish text used in reports.
func (s Shift) Label() string {
	switch s {
	case ShiftFirst:
		return "PRIMERO"
	case ShiftSecond:
		return "SEGUNDO"
	case ShiftDaily:
		return "DIARIO"
	}
	return string(s)
}

// LocationData is where an operative takes place.
type LocationData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Colony    string  `json:"colony"`
	Street    string  `json:"street"`
	Corner    string  `json:"corner"`
}

// Unit is a municipal vehicle deployed on an operative.
type Unit struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	UnitNumber     string `json:"unit_number"`
	InCharge       string `json:"in_charge"`
	Rank           string `json:"rank"`
	PersonnelCount int    `json:"personnel_count"`
	Phone          string `json:"phone,omitempty"`
}

// Corporation is an external agency supporting an operative.
type Corporation struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	UnitNumber     string `json:"unit_number"`
	InCharge       string `json:"in_charge"`
	UnitCount      int    `json:"unit_count"`
	PersonnelCount int    `json:"personnel_count"`
}

// ReunionDetails is captured when a neighbourhood meeting concludes.
type ReunionDetails struct {
	RepresentativeName string `json:"representative_name"`
	Phone              string `json:"phone"`
	ParticipantCount   int    `json:"participant_count"`
	Petitions          string `json:"petitions"`
}

// Conclusion is the closing report attached to a concluded operative.
type Conclusion struct {
	Location               string          `json:"location"`
	ColoniesCovered        []string        `json:"colonies_covered"`
	PublicTransportChecked int             `json:"public_transport_checked"`
	PrivateVehiclesChecked int             `json:"private_vehicles_checked"`
	MotorcyclesChecked     int             `json:"motorcycles_checked"`
	PeopleChecked          int             `json:"people_checked"`
	Result                 ResultType      `json:"result"`
	DetaineesCount         *int            `json:"detainees_count,omitempty"`
	DetentionReason        string          `json:"detention_reason,omitempty"`
	CrimeType              string          `json:"crime_type,omitempty"`
	ReunionDetails         *ReunionDetails `json:"reunion_details,omitempty"`
	ConcludedAt            time.Time       `json:"concluded_at"`
}

// Operative is a logged patrol deployment or neighbourhood meeting.
type Operative struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	SpecificType string          `json:"specific_type,omitempty"`
	MeetingTopic string          `json:"meeting_topic,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	Status       OperativeStatus `json:"status"`
	Region       string          `json:"region"`
	Quadrant     string          `json:"quadrant"`
	Shift        Shift           `json:"shift"`
	Location     LocationData    `json:"location"`
	Units        []Unit          `json:"units"`
	Corporations []Corporation   `json:"corporations"`
	Conclusion   *Conclusion     `json:"conclusion,omitempty"`
	CreatedBy    string          `json:"created_by"`
}

// IsMeeting reports whether the operative is a neighbourhood meeting.
func (o *Operative) IsMeeting() bool {
	return IsMeetingType(o.Type)
}

// IsMeetingType reports whether an operative type denotes a neighbourhood
// meeting.
func IsMeetingType(t string) bool {
	return strings.Contains(strings.ToUpper(t), MeetingTypeMarker)
}

// OperativeIDPrefix is the id prefix shared by all operatives created on day.
func OperativeIDPrefix(day time.Time) string {
	return "OP" + day.Format("060102")
}

// FormatOperativeID builds the id of the seq-th operative of day.
func FormatOperativeID(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%02d", OperativeIDPrefix(day), seq)
}

// UnitInput is a unit as submitted on registration.
type UnitInput struct {
	Type           string `json:"type"`
	UnitNumber     string `json:"unit_number" binding:"required"`
	InCharge       string `json:"in_charge" binding:"required"`
	Rank           string `json:"rank" binding:"required"`
	PersonnelCount int    `json:"personnel_count" binding:"min=0"`
	Phone          string `json:"phone" binding:"omitempty,digits,max=10"`
}

// CorporationInput is a supporting corporation as submitted on registration.
type CorporationInput struct {
	Name           string `json:"name" binding:"required"`
	UnitNumber     string `json:"unit_number"`
	InCharge       string `json:"in_charge"`
	UnitCount      int    `json:"unit_count" binding:"min=0"`
	PersonnelCount int    `json:"personnel_count" binding:"min=0"`
}

// CreateOperativeRequest registers a new operative.
type CreateOperativeRequest struct {
	Type         string             `json:"type" binding:"required"`
	SpecificType string             `json:"specific_type"`
	MeetingTopic string             `json:"meeting_topic"`
	Region       string             `json:"region"`
	Quadrant     string             `json:"quadrant"`
	Shift        string             `json:"shift"`
	Location     LocationData       `json:"location"`
	Units        []UnitInput        `json:"units" binding:"dive"`
	Corporations []CorporationInput `json:"corporations" binding:"dive"`
}

// ReunionInput carries the neighbourhood meeting closing data.
type ReunionInput struct {
	RepresentativeName string `json:"representative_name"`
	Phone              string `json:"phone"`
	ParticipantCount   int    `json:"participant_count"`
	Petitions          string `json:"petitions"`
}

// ConcludeOperativeRequest closes an active operative.
type ConcludeOperativeRequest struct {
	Location               string        `json:"location"`
	ColoniesCovered        []string      `json:"colonies_covered"`
	PublicTransportChecked int           `json:"public_transport_checked" binding:"min=0"`
	PrivateVehiclesChecked int           `json:"private_vehicles_checked" binding:"min=0"`
	MotorcyclesChecked     int           `json:"motorcycles_checked" binding:"min=0"`
	PeopleChecked          int           `json:"people_checked" binding:"min=0"`
	Result                 string        `json:"result"`
	DetaineesCount         int           `json:"detainees_count" binding:"min=0"`
	Incident               string        `json:"incident"`
	OtherIncident          string        `json:"other_incident"`
	Reunion                *ReunionInput `json:"reunion"`
}

// OperativeEventKind names a lifecycle event.
type OperativeEventKind string

const (
	EventOperativeCreated   OperativeEventKind = "created"
	EventOperativeConcluded OperativeEventKind = "concluded"
	EventOperativeDeleted   OperativeEventKind = "deleted"
)

// OperativeEvent is published after an operative mutation is persisted.
type OperativeEvent struct {
	Kind       OperativeEventKind `json:"kind"`
	ID         string             `json:"id"`
	Region     string             `json:"region"`
	CreatedBy  string             `json:"created_by"`
	Operative  *Operative         `json:"operative,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}
