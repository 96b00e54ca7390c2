package main

import (
	"context"

	"github.com/somaedu/soma-backend/core/identity"
)

func (cli *commandLine) addParent(name, email, pwd string) error {
	_, err := cli.identitySvc.RegisterParent(context.Background(), identity.NewParent{
		Name:     name,
		Email:    email,
		Password: pwd,
	})
	return err
}
