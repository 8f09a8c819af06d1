package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) isLoggedIn() bool {
	_, ok := a.tokens.Current(context.Background())
	return ok
}

func (a *App) getStatus() string {
	s := "offline"
	if a.monitor.Online() {
		s = "online"
	}
	if n := a.store.Len(); n > 0 {
		s = fmt.Sprintf("%s, %d pending", s, n)
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to LeafSync CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	runREPL(ctx, a, a.getStatus, scanner)
}
