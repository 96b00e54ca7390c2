package main

import "context"

func (cli *commandLine) resetPassword(email, pwd string) error {
	return cli.identitySvc.ResetParentPassword(context.Background(), email, pwd)
}
