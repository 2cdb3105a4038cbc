package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
	graphql "github.com/hasura/go-graphql-client"
)

const (
	paymentByOrderQuery = `query PaymentByOrder($orderId: String!) {
  paymentByOrderId(orderId: $orderId) {
    id
    orderId
    status
    transactionId
  }
}`

	updatePaymentMutation = `mutation UPDATE_PAYMENT($id: String!, $input: UpdatePaymentInput!) {
  updatePayment(id: $id, input: $input) {
    id
    status
  }
}`
)

var (
	ErrGraphQL        = errors.New("graphql error")
	ErrInvalidPayload = errors.New("invalid stored graphql request")
)

// GraphQLRequest is the wire form of a GraphQL call. Stored outbox
// payloads use it so they can be decoded again at replay time.
type GraphQLRequest struct {
	OperationName string                 `json:"operationName,omitempty"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

type GraphQLClient struct {
	url    string
	client *graphql.Client
}

func NewGraphQLClient(url, apiToken string, timeout time.Duration) *GraphQLClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	url = strings.TrimSpace(url)
	token := strings.TrimSpace(apiToken)

	client := graphql.NewClient(url, &http.Client{Timeout: timeout})
	if token != "" {
		client = client.WithRequestModifier(func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
		})
	}

	return &GraphQLClient{url: url, client: client}
}

func (c *GraphQLClient) URL() string {
	return c.url
}

// FindPaymentByOrder returns nil when the backend has no payment for orderID.
func (c *GraphQLClient) FindPaymentByOrder(ctx context.Context, orderID string) (*entity.PaymentRecord, error) {
	data, err := c.exec(ctx, paymentByOrderQuery, map[string]interface{}{"orderId": orderID})
	if err != nil {
		return nil, err
	}

	var payload struct {
		PaymentByOrderID *entity.PaymentRecord `json:"paymentByOrderId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphQL, err)
	}
	if payload.PaymentByOrderID == nil || strings.TrimSpace(payload.PaymentByOrderID.ID) == "" {
		return nil, nil
	}
	if payload.PaymentByOrderID.OrderID == "" {
		payload.PaymentByOrderID.OrderID = orderID
	}

	return payload.PaymentByOrderID, nil
}

func (c *GraphQLClient) UpdatePayment(ctx context.Context, paymentID string, update *entity.PaymentUpdate) error {
	_, err := c.exec(ctx, updatePaymentMutation, updatePaymentVariables(paymentID, update))
	return err
}

// BuildUpdatePaymentRequest encodes the UPDATE_PAYMENT mutation so it can be
// stored for a later retry.
func BuildUpdatePaymentRequest(paymentID string, update *entity.PaymentUpdate) ([]byte, error) {
	return json.Marshal(&GraphQLRequest{
		OperationName: "UPDATE_PAYMENT",
		Query:         updatePaymentMutation,
		Variables:     updatePaymentVariables(paymentID, update),
	})
}

// ParseUpdatePaymentRequest is the inverse of BuildUpdatePaymentRequest.
func ParseUpdatePaymentRequest(body []byte) (string, *entity.PaymentUpdate, error) {
	var req struct {
		Variables struct {
			ID    string                `json:"id"`
			Input *entity.PaymentUpdate `json:"input"`
		} `json:"variables"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	paymentID := strings.TrimSpace(req.Variables.ID)
	if paymentID == "" || req.Variables.Input == nil || req.Variables.Input.Status == "" {
		return "", nil, fmt.Errorf("%w: missing payment id or status", ErrInvalidPayload)
	}
	return paymentID, req.Variables.Input, nil
}

func updatePaymentVariables(paymentID string, update *entity.PaymentUpdate) map[string]interface{} {
	return map[string]interface{}{
		"id":    paymentID,
		"input": update,
	}
}

func (c *GraphQLClient) exec(ctx context.Context, query string, variables map[string]interface{}) ([]byte, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}
	data, err := c.client.ExecRaw(ctx, query, variables)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGraphQL, truncate(err.Error(), 512))
	}
	return data, nil
}
