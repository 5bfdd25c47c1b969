package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioProvider serves all three channels. WhatsApp rides on the messaging
// API with the whatsapp: address scheme; calls use inline TwiML so no
// webhook endpoint is needed for the spoken alert.
type TwilioProvider struct {
	client         *twilio.RestClient
	fromNumber     string
	whatsAppNumber string
}

func NewTwilioProvider(accountSID, authToken, fromNumber, whatsAppNumber string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioProvider{
		client:         client,
		fromNumber:     fromNumber,
		whatsAppNumber: whatsAppNumber,
	}
}

func (t *TwilioProvider) SendSMS(ctx context.Context, request *MessageRequest) (*SendResponse, error) {
	params := &api.CreateMessageParams{}
	params.SetTo(request.To)
	params.SetFrom(t.getFrom(request.From))
	params.SetBody(request.Message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return &SendResponse{Status: "failed", Error: err.Error()}, err
	}

	return &SendResponse{
		MessageID: *resp.Sid,
		Status:    string(*resp.Status),
	}, nil
}

func (t *TwilioProvider) SendWhatsApp(ctx context.Context, request *MessageRequest) (*SendResponse, error) {
	from := t.whatsAppNumber
	if from == "" {
		from = t.fromNumber
	}

	params := &api.CreateMessageParams{}
	params.SetTo("whatsapp:" + request.To)
	params.SetFrom("whatsapp:" + from)
	params.SetBody(request.Message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return &SendResponse{Status: "failed", Error: err.Error()}, err
	}

	return &SendResponse{
		MessageID: *resp.Sid,
		Status:    string(*resp.Status),
	}, nil
}

func (t *TwilioProvider) PlaceCall(ctx context.Context, request *CallRequest) (*SendResponse, error) {
	params := &api.CreateCallParams{}
	params.SetTo(request.To)
	params.SetFrom(t.getFrom(request.From))
	params.SetTwiml(fmt.Sprintf("<Response><Say>%s</Say></Response>", request.Message))
	params.SetTimeout(30)

	resp, err := t.client.Api.CreateCall(params)
	if err != nil {
		return &SendResponse{Status: "failed", Error: err.Error()}, err
	}

	return &SendResponse{
		MessageID: *resp.Sid,
		Status:    string(*resp.Status),
	}, nil
}

func (t *TwilioProvider) getFrom(from string) string {
	if from != "" {
		return from
	}
	return t.fromNumber
}
