package rpc

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskseal/internal/client/models"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrBadMessage is returned when a message lacks a field or a field has the
// wrong type.
var ErrBadMessage = errors.New("bad message")

const (
	fieldID               = "id"
	fieldUserID           = "user_id"
	fieldTitle            = "title"
	fieldNotes            = "notes"
	fieldTags             = "tags"
	fieldEncryptedPayload = "encrypted_payload"
	fieldDone             = "done"
	fieldCreatedAt        = "created_at"
	fieldUpdatedAt        = "updated_at"
	fieldRecords          = "records"
	fieldPatch            = "patch"
	fieldSettings         = "settings"
	fieldCredentialID     = "credential_id"
	fieldKeyCheck         = "key_check"
	fieldStatus           = "status"
)

// StatusOK is the Ping response status of a healthy server.
const StatusOK = "OK"

func tagsValue(tags []string) *structpb.Value {
	vals := make([]*structpb.Value, 0, len(tags))
	for _, t := range tags {
		vals = append(vals, structpb.NewStringValue(t))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func timeValue(t time.Time) *structpb.Value {
	if t.IsZero() {
		return structpb.NewStringValue("")
	}
	return structpb.NewStringValue(t.UTC().Format(time.RFC3339Nano))
}

func getString(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrBadMessage, name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrBadMessage, name)
	}
	return sv.StringValue, nil
}

func optString(s *structpb.Struct, name string) (string, error) {
	if _, ok := s.GetFields()[name]; !ok {
		return "", nil
	}
	return getString(s, name)
}

func getBool(s *structpb.Struct, name string) (bool, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return false, fmt.Errorf("%w: missing %s", ErrBadMessage, name)
	}
	bv, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: %s is not a bool", ErrBadMessage, name)
	}
	return bv.BoolValue, nil
}

func getTags(s *structpb.Struct, name string) ([]string, error) {
	tags := []string{}
	v, ok := s.GetFields()[name]
	if !ok {
		return tags, nil
	}
	lv, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a list", ErrBadMessage, name)
	}
	for _, item := range lv.ListValue.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s holds a non-string", ErrBadMessage, name)
		}
		tags = append(tags, sv.StringValue)
	}
	return tags, nil
}

func getTime(s *structpb.Struct, name string) (time.Time, error) {
	raw, err := optString(s, name)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrBadMessage, name, err)
	}
	return t, nil
}

func getStruct(s *structpb.Struct, name string) (*structpb.Struct, bool, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, false, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, false, nil
	case *structpb.Value_StructValue:
		return k.StructValue, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %s is not an object", ErrBadMessage, name)
	}
}

// EncodeTask renders a task as a message.
func EncodeTask(t models.Task) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:               structpb.NewStringValue(t.ID),
		fieldUserID:           structpb.NewStringValue(t.UserID),
		fieldTitle:            structpb.NewStringValue(t.Title),
		fieldNotes:            structpb.NewStringValue(t.Notes),
		fieldTags:             tagsValue(t.Tags),
		fieldEncryptedPayload: structpb.NewStringValue(t.EncryptedPayload),
		fieldDone:             structpb.NewBoolValue(t.Done),
		fieldCreatedAt:        timeValue(t.CreatedAt),
		fieldUpdatedAt:        timeValue(t.UpdatedAt),
	}}
}

// DecodeTask parses a message produced by EncodeTask. Only id is required.
func DecodeTask(s *structpb.Struct) (models.Task, error) {
	var (
		t   models.Task
		err error
	)
	if t.ID, err = optString(s, fieldID); err != nil {
		return t, err
	}
	if t.UserID, err = optString(s, fieldUserID); err != nil {
		return t, err
	}
	if t.Title, err = optString(s, fieldTitle); err != nil {
		return t, err
	}
	if t.Notes, err = optString(s, fieldNotes); err != nil {
		return t, err
	}
	if t.Tags, err = getTags(s, fieldTags); err != nil {
		return t, err
	}
	if t.EncryptedPayload, err = optString(s, fieldEncryptedPayload); err != nil {
		return t, err
	}
	if _, ok := s.GetFields()[fieldDone]; ok {
		if t.Done, err = getBool(s, fieldDone); err != nil {
			return t, err
		}
	}
	if t.CreatedAt, err = getTime(s, fieldCreatedAt); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = getTime(s, fieldUpdatedAt); err != nil {
		return t, err
	}
	return t, nil
}

// EncodeTaskList wraps tasks in a ListRecords response.
func EncodeTaskList(tasks []models.Task) *structpb.Struct {
	vals := make([]*structpb.Value, 0, len(tasks))
	for _, t := range tasks {
		vals = append(vals, structpb.NewStructValue(EncodeTask(t)))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldRecords: structpb.NewListValue(&structpb.ListValue{Values: vals}),
	}}
}

// DecodeTaskList parses a ListRecords response.
func DecodeTaskList(s *structpb.Struct) ([]models.Task, error) {
	result := []models.Task{}
	v, ok := s.GetFields()[fieldRecords]
	if !ok {
		return result, nil
	}
	lv, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a list", ErrBadMessage, fieldRecords)
	}
	for _, item := range lv.ListValue.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StructValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s holds a non-object", ErrBadMessage, fieldRecords)
		}
		t, err := DecodeTask(sv.StructValue)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

// EncodeID builds a request naming a single record.
func EncodeID(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{fieldID: structpb.NewStringValue(id)}}
}

// DecodeID reads the record id of a request.
func DecodeID(s *structpb.Struct) (string, error) {
	id, err := getString(s, fieldID)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty %s", ErrBadMessage, fieldID)
	}
	return id, nil
}

// EncodePatch builds a PatchRecord request.
func EncodePatch(id string, p models.ContentPatch) *structpb.Struct {
	patch := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldTitle:            structpb.NewStringValue(p.Title),
		fieldNotes:            structpb.NewStringValue(p.Notes),
		fieldTags:             tagsValue(p.Tags),
		fieldEncryptedPayload: structpb.NewStringValue(p.EncryptedPayload),
	}}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:    structpb.NewStringValue(id),
		fieldPatch: structpb.NewStructValue(patch),
	}}
}

// DecodePatch parses a PatchRecord request. All four content fields must be
// present so that a patch always replaces the whole content.
func DecodePatch(s *structpb.Struct) (string, models.ContentPatch, error) {
	var p models.ContentPatch
	id, err := DecodeID(s)
	if err != nil {
		return "", p, err
	}
	ps, ok, err := getStruct(s, fieldPatch)
	if err != nil {
		return "", p, err
	}
	if !ok {
		return "", p, fmt.Errorf("%w: missing %s", ErrBadMessage, fieldPatch)
	}
	if p.Title, err = getString(ps, fieldTitle); err != nil {
		return "", p, err
	}
	if p.Notes, err = getString(ps, fieldNotes); err != nil {
		return "", p, err
	}
	if _, ok := ps.GetFields()[fieldTags]; !ok {
		return "", p, fmt.Errorf("%w: missing %s", ErrBadMessage, fieldTags)
	}
	if p.Tags, err = getTags(ps, fieldTags); err != nil {
		return "", p, err
	}
	if p.EncryptedPayload, err = getString(ps, fieldEncryptedPayload); err != nil {
		return "", p, err
	}
	return id, p, nil
}

// EncodeSetDone builds a SetDone request.
func EncodeSetDone(id string, done bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:   structpb.NewStringValue(id),
		fieldDone: structpb.NewBoolValue(done),
	}}
}

// DecodeSetDone parses a SetDone request.
func DecodeSetDone(s *structpb.Struct) (string, bool, error) {
	id, err := DecodeID(s)
	if err != nil {
		return "", false, err
	}
	done, err := getBool(s, fieldDone)
	if err != nil {
		return "", false, err
	}
	return id, done, nil
}

// EncodeSettings builds a GetSettings response. Nil settings encode as an
// explicit null.
func EncodeSettings(es *models.EncryptionSettings) *structpb.Struct {
	if es == nil {
		return &structpb.Struct{Fields: map[string]*structpb.Value{fieldSettings: structpb.NewNullValue()}}
	}
	inner := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldUserID:       structpb.NewStringValue(es.UserID),
		fieldCredentialID: structpb.NewStringValue(es.CredentialID),
		fieldKeyCheck:     structpb.NewStringValue(es.KeyCheck),
		fieldCreatedAt:    timeValue(es.CreatedAt),
	}}
	return &structpb.Struct{Fields: map[string]*structpb.Value{fieldSettings: structpb.NewStructValue(inner)}}
}

// DecodeSettings parses a GetSettings response; absent settings are nil.
func DecodeSettings(s *structpb.Struct) (*models.EncryptionSettings, error) {
	inner, ok, err := getStruct(s, fieldSettings)
	if err != nil || !ok {
		return nil, err
	}
	es := &models.EncryptionSettings{}
	if es.UserID, err = optString(inner, fieldUserID); err != nil {
		return nil, err
	}
	if es.CredentialID, err = getString(inner, fieldCredentialID); err != nil {
		return nil, err
	}
	if es.KeyCheck, err = getString(inner, fieldKeyCheck); err != nil {
		return nil, err
	}
	if es.CreatedAt, err = getTime(inner, fieldCreatedAt); err != nil {
		return nil, err
	}
	return es, nil
}

// EncodeSetSettings builds a SetSettings request.
func EncodeSetSettings(credentialID, keyCheck string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldCredentialID: structpb.NewStringValue(credentialID),
		fieldKeyCheck:     structpb.NewStringValue(keyCheck),
	}}
}

// DecodeSetSettings parses a SetSettings request.
func DecodeSetSettings(s *structpb.Struct) (credentialID, keyCheck string, err error) {
	if credentialID, err = getString(s, fieldCredentialID); err != nil {
		return "", "", err
	}
	if keyCheck, err = getString(s, fieldKeyCheck); err != nil {
		return "", "", err
	}
	if credentialID == "" || keyCheck == "" {
		return "", "", fmt.Errorf("%w: empty settings", ErrBadMessage)
	}
	return credentialID, keyCheck, nil
}

// EncodeStatus builds a Ping response.
func EncodeStatus(status string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{fieldStatus: structpb.NewStringValue(status)}}
}

// DecodeStatus reads a Ping response.
func DecodeStatus(s *structpb.Struct) string {
	st, _ := optString(s, fieldStatus)
	return st
}
