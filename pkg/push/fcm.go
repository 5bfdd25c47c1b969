package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMProvider struct {
	client *messaging.Client
}

func NewFCMProvider(credentialsFile string) (*FCMProvider, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMProvider{
		client: client,
	}, nil
}

func (f *FCMProvider) SendAlert(ctx context.Context, request *AlertRequest) (*AlertResponse, error) {
	data := map[string]string{}
	for k, v := range request.Data {
		data[k] = v
	}
	if request.IncidentID != "" {
		data["incident_id"] = request.IncidentID
	}

	message := &messaging.Message{
		Token: request.Token,
		Notification: &messaging.Notification{
			Title: request.Title,
			Body:  request.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	response, err := f.client.Send(ctx, message)
	if err != nil {
		return &AlertResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	return &AlertResponse{
		MessageID: response,
		Success:   true,
	}, nil
}
