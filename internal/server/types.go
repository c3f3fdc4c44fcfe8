package server

import "subcast/internal/storage"

type sendMessageRequest struct {
	ChannelName string `json:"channel_name"`
	Message     string `json:"message"`
}

type sendMessageResponse struct {
	Sent    int    `json:"sent"`
	Errors  int    `json:"errors"`
	Channel string `json:"channel"`
}

type broadcastRequest struct {
	Message string `json:"message"`
}

type broadcastResponse struct {
	Sent             int `json:"sent"`
	Errors           int `json:"errors"`
	TotalSubscribers int `json:"total_subscribers"`
}

type subscriptionsResponse struct {
	Subscriptions []storage.Subscription `json:"subscriptions"`
	Total         int                    `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}
