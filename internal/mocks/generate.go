package mocks

//go:generate mockgen -destination=./mock_connector.go -package=mocks github.com/camuig/autotrader/internal/broker Connector
//go:generate mockgen -destination=./mock_recommender.go -package=mocks github.com/camuig/autotrader/internal/ai Recommender
//go:generate mockgen -destination=./mock_source.go -package=mocks github.com/camuig/autotrader/internal/marketdata Source
