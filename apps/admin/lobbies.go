package main

import (
	"context"
	"fmt"
)

// printLobbies lists the persisted lobby records, oldest first.
func (cli *commandLine) printLobbies() error {
	lobbies, err := cli.lobbyRepo.QueryLobbies(context.Background())
	if err != nil {
		return err
	}
	if len(lobbies) == 0 {
		fmt.Println("no lobby records")
		return nil
	}
	for _, l := range lobbies {
		fmt.Printf("%s  %-20s  %-9s  members=%d  bank=%d\n", l.ID, l.Name, l.Status, len(l.Members), l.BankID)
	}
	return nil
}
