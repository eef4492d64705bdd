package pubsubrx

import "errors"

var (
	ErrHubClosed           = errors.New("pubsubrx: hub closed")
	ErrEmptyTopic          = errors.New("pubsubrx: topic name must not be empty")
	ErrTopicNotRegistered  = errors.New("pubsubrx: topic not registered")
	ErrTopicTypeMismatch   = errors.New("pubsubrx: topic registered with a different type")
	ErrDuplicateSubscriber = errors.New("pubsubrx: subscriber already exists on topic")
	ErrNoValue             = errors.New("pubsubrx: publisher finished without a value")
)
