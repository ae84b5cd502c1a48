package db

import (
	"testing"

	"github.com/ItzSouraseez/knowyourplate/config"
)

func TestConnString(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DBConfig
		want string
	}{
		{
			"plain",
			config.DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "pw", Database: "plates"},
			"postgres://postgres:pw@localhost:5432/plates",
		},
		{
			"sslmode and escaped password",
			config.DBConfig{Host: "db", Port: 6543, User: "app", Password: "p@ss/word", Database: "plates", SSLMode: "require"},
			"postgres://app:p%40ss%2Fword@db:6543/plates?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConnString(tt.cfg); got != tt.want {
				t.Errorf("ConnString() = %q, want %q", got, tt.want)
			}
		})
	}
}
