package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData is the identity attached to every authenticated operator
// request. OperationTypeID is the station context from the badge/QR
// login, when present.
type RequestData struct {
	TokenString     string
	OperatorID      uuid.UUID
	CompanyID       uuid.UUID
	OperatorName    string
	OperationTypeID *uuid.UUID
}
