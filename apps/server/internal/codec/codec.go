// Package codec turns Q-tables and policies into base64 protobuf blobs for
// storage and back.
package codec

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"blackjack-ql/qlearn"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const blobVersion = 1

var marshalOpts = proto.MarshalOptions{Deterministic: true}

// EncodeTable stores every row of q. Values are float64 in the blob, so a
// decoded table compares Equal to the original.
func EncodeTable(q *qlearn.QTable) (string, error) {
	rows := q.Rows()
	list := make([]any, 0, len(rows))
	for _, r := range rows {
		list = append(list, map[string]any{
			"state": r.State,
			"hit":   r.Hit,
			"stand": r.Stand,
		})
	}
	return encodeStruct(map[string]any{
		"version": blobVersion,
		"kind":    "q_table",
		"rows":    list,
	})
}

func DecodeTable(b64 string) (*qlearn.QTable, error) {
	m, err := decodeStruct(b64, "q_table")
	if err != nil {
		return nil, err
	}
	raw, ok := m["rows"].([]any)
	if !ok {
		return nil, fmt.Errorf("q_table blob: missing rows")
	}
	rows := make([]qlearn.Row, 0, len(raw))
	for i, item := range raw {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("q_table blob: row %d is %T", i, item)
		}
		state, _ := fields["state"].(float64)
		hit, _ := fields["hit"].(float64)
		stand, _ := fields["stand"].(float64)
		rows = append(rows, qlearn.Row{State: int(state), Hit: hit, Stand: stand})
	}
	return qlearn.QTableFromRows(rows)
}

func EncodePolicy(p qlearn.Policy) (string, error) {
	actions := make(map[string]any, qlearn.MaxState)
	for s, a := range p.Map() {
		actions[strconv.Itoa(s)] = a.String()
	}
	return encodeStruct(map[string]any{
		"version": blobVersion,
		"kind":    "policy",
		"actions": actions,
	})
}

func DecodePolicy(b64 string) (qlearn.Policy, error) {
	m, err := decodeStruct(b64, "policy")
	if err != nil {
		return qlearn.Policy{}, err
	}
	raw, ok := m["actions"].(map[string]any)
	if !ok {
		return qlearn.Policy{}, fmt.Errorf("policy blob: missing actions")
	}
	actions := make(map[int]qlearn.Action, len(raw))
	for k, v := range raw {
		s, err := strconv.Atoi(k)
		if err != nil {
			return qlearn.Policy{}, fmt.Errorf("policy blob: state %q: %w", k, err)
		}
		name, _ := v.(string)
		a, err := qlearn.ParseAction(name)
		if err != nil {
			return qlearn.Policy{}, fmt.Errorf("policy blob: state %d: %w", s, err)
		}
		actions[s] = a
	}
	return qlearn.PolicyFromMap(actions)
}

func encodeStruct(m map[string]any) (string, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return "", err
	}
	bin, err := marshalOpts.Marshal(st)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(bin), nil
}

func decodeStruct(b64, kind string) (map[string]any, error) {
	bin, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%s blob: %w", kind, err)
	}
	var st structpb.Struct
	if err := proto.Unmarshal(bin, &st); err != nil {
		return nil, fmt.Errorf("%s blob: %w", kind, err)
	}
	m := st.AsMap()
	if got, _ := m["kind"].(string); got != kind {
		return nil, fmt.Errorf("%s blob: unexpected kind %q", kind, got)
	}
	if v, _ := m["version"].(float64); int(v) != blobVersion {
		return nil, fmt.Errorf("%s blob: unsupported version %v", kind, m["version"])
	}
	return m, nil
}
