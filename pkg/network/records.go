package network

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/osenergy/gridmend/pkg/logging"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// NodeRecord is the canonical flat node record handed over by the
// import collaborator. Field-name normalization happens before data
// reaches this package; exactly one spelling is accepted.
type NodeRecord struct {
	ID             string   `json:"id" validate:"required"`
	Name           string   `json:"name"`
	UTMX           *float64 `json:"utmX"`
	UTMY           *float64 `json:"utmY"`
	Lat            *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng            *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	IsTransformer  bool     `json:"isTransformer"`
	TransformerKVA float64  `json:"transformerKva" validate:"gte=0"`
	Status         string   `json:"status"`
	Customers      int      `json:"customers" validate:"gte=0"`
}

// EdgeRecord is the canonical flat conductor record
type EdgeRecord struct {
	FromID  string  `json:"fromId" validate:"required"`
	ToID    string  `json:"toId" validate:"required"`
	LengthM float64 `json:"lengthMeters" validate:"gt=0"`
	SpecID  string  `json:"conductorSpecId"`
	Kind    string  `json:"typeTag" validate:"omitempty,oneof=backbone distribution dropline service"`
	Voltage string  `json:"voltage" validate:"omitempty,oneof=mv lv"`
}

// SourceHint marks a node the caller already knows injects power
type SourceHint struct {
	NodeID      string  `json:"nodeId" validate:"required"`
	CapacityKVA float64 `json:"capacityKva" validate:"gte=0"`
}

// BuildGraph validates a record batch and constructs the graph. A batch
// containing malformed records is rejected whole with a GraphError
// wrapping a BatchError that lists every offender; values are never
// silently coerced.
//
// Duplicate node ids keep the first occurrence (the duplicate is logged
// and left for the validator to report). Edges referencing ids absent
// from the node batch get placeholder endpoint nodes; the validator
// reports them as dangling references.
func BuildGraph(nodes []NodeRecord, edges []EdgeRecord, hints []SourceHint) (*Graph, error) {
	var rejected []RecordError

	for i, rec := range nodes {
		if err := validate.Struct(rec); err != nil {
			rejected = append(rejected, RecordError{
				Kind: "node", Index: i, ID: rec.ID, Reason: formatFieldErrors(err),
			})
		}
		if (rec.UTMX == nil) != (rec.UTMY == nil) {
			rejected = append(rejected, RecordError{
				Kind: "node", Index: i, ID: rec.ID, Reason: "utmX and utmY must be set together",
			})
		}
		if (rec.Lat == nil) != (rec.Lng == nil) {
			rejected = append(rejected, RecordError{
				Kind: "node", Index: i, ID: rec.ID, Reason: "lat and lng must be set together",
			})
		}
	}
	for i, rec := range edges {
		if err := validate.Struct(rec); err != nil {
			rejected = append(rejected, RecordError{
				Kind: "edge", Index: i, ID: rec.FromID + "->" + rec.ToID, Reason: formatFieldErrors(err),
			})
		}
	}
	for i, rec := range hints {
		if err := validate.Struct(rec); err != nil {
			rejected = append(rejected, RecordError{
				Kind: "hint", Index: i, ID: rec.NodeID, Reason: formatFieldErrors(err),
			})
		}
	}
	if len(rejected) > 0 {
		return nil, &GraphError{Op: "BuildGraph", Entity: "batch", Cause: &BatchError{Records: rejected}}
	}

	g := NewGraph()
	for _, rec := range nodes {
		added := g.AddNode(recordToNode(rec))
		if !added {
			logging.Warn("duplicate node id in import batch, keeping first occurrence",
				logging.Component("network"), logging.PoleID(rec.ID))
		}
	}
	for _, rec := range edges {
		g.AddEdge(Edge{
			From:    rec.FromID,
			To:      rec.ToID,
			LengthM: rec.LengthM,
			SpecID:  rec.SpecID,
			Kind:    rec.Kind,
			Voltage: rec.Voltage,
		})
	}
	return g, nil
}

func recordToNode(rec NodeRecord) Node {
	n := Node{
		ID:             rec.ID,
		Name:           rec.Name,
		IsTransformer:  rec.IsTransformer,
		TransformerKVA: rec.TransformerKVA,
		Status:         rec.Status,
		Customers:      rec.Customers,
	}
	if rec.UTMX != nil && rec.UTMY != nil {
		n.Position.UTMX = *rec.UTMX
		n.Position.UTMY = *rec.UTMY
		n.Position.HasUTM = true
	}
	if rec.Lat != nil && rec.Lng != nil {
		n.Position.Lat = *rec.Lat
		n.Position.Lng = *rec.Lng
		n.Position.HasLatLng = true
	}
	return n
}

// formatFieldErrors flattens validator field errors into one message
func formatFieldErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += ", "
		}
		if fe.Param() != "" {
			msg += fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		} else {
			msg += fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
	}
	return msg
}
