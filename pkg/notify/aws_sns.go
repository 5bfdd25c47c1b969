package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// AWSSNSProvider is an SMS-only fallback transport. WhatsApp and voice are
// not served by SNS; those sends report ErrChannelUnsupported.
type AWSSNSProvider struct {
	client *sns.Client
	region string
}

func NewAWSSNSProvider(region string) (*AWSSNSProvider, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSNSProvider{
		client: sns.NewFromConfig(cfg),
		region: region,
	}, nil
}

func (a *AWSSNSProvider) SendSMS(ctx context.Context, request *MessageRequest) (*SendResponse, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(request.To),
		Message:     aws.String(request.Message),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}

	resp, err := a.client.Publish(ctx, input)
	if err != nil {
		return &SendResponse{Status: "failed", Error: err.Error()}, err
	}

	return &SendResponse{
		MessageID: *resp.MessageId,
		Status:    "sent",
	}, nil
}

func (a *AWSSNSProvider) SendWhatsApp(ctx context.Context, request *MessageRequest) (*SendResponse, error) {
	return &SendResponse{Status: "failed", Error: ErrChannelUnsupported.Error()}, ErrChannelUnsupported
}

func (a *AWSSNSProvider) PlaceCall(ctx context.Context, request *CallRequest) (*SendResponse, error) {
	return &SendResponse{Status: "failed", Error: ErrChannelUnsupported.Error()}, ErrChannelUnsupported
}
