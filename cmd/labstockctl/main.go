// Command labstockctl drives a running labstock server from the terminal.
//
//	labstockctl -email aoi@lab.example -password secret products
//	labstockctl ... consume swab
//	labstockctl ... misc "masking tape" 2
//	labstockctl ... -admin-password pw set-stock 1 10
//	labstockctl ... -admin-password pw history
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"labstock-backend/internal/client"
	"labstock-backend/internal/ledger"
	"labstock-backend/internal/workflow"
)

func main() {
	baseURL := flag.String("url", envOr("LABSTOCK_URL", "http://localhost:8080"), "server base URL")
	email := flag.String("email", os.Getenv("LABSTOCK_EMAIL"), "login email")
	password := flag.String("password", os.Getenv("LABSTOCK_PASSWORD"), "login password")
	adminPassword := flag.String("admin-password", "", "admin password, unlocks admin commands")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c := client.New(*baseURL)
	if _, err := c.Login(ctx, *email, *password); err != nil {
		log.Fatal(err)
	}
	if *adminPassword != "" {
		if err := c.AdminUnlock(ctx, *adminPassword); err != nil {
			log.Fatal(err)
		}
	}

	if err := run(ctx, c, args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, c *client.Client, args []string) error {
	switch args[0] {
	case "products":
		products, err := c.ListProducts(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tNAME\tSTOCK\tUNIT")
		for _, p := range products {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Code, p.Name, p.CurrentStock, p.Unit)
		}
		return w.Flush()

	case "consume":
		if len(args) != 2 {
			return errors.New("usage: consume <code or label link>")
		}
		return consume(ctx, c, args[1])

	case "misc":
		if len(args) != 3 {
			return errors.New("usage: misc <item name> <quantity>")
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		e, err := c.RecordMiscUse(ctx, args[1], qty)
		if err != nil {
			return err
		}
		fmt.Printf("recorded %d x %s at %s\n", e.Quantity, e.MiscItemName, e.Timestamp)
		return nil

	case "adjust", "set-stock":
		if len(args) != 3 {
			return fmt.Errorf("usage: %s <product id> <number>", args[0])
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("product id: %w", err)
		}
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("number: %w", err)
		}
		var res ledger.Result
		if args[0] == "adjust" {
			res, err = c.AdjustStock(ctx, uint(id), n)
		} else {
			res, err = c.SetStock(ctx, uint(id), n)
		}
		if err != nil {
			return err
		}
		if res.Entry == nil {
			fmt.Printf("%s unchanged at %d\n", res.Product.Code, res.Product.CurrentStock)
			return nil
		}
		fmt.Printf("%s now %d (%s %d)\n", res.Product.Code, res.Product.CurrentStock, res.Entry.ChangeType, res.Entry.Quantity)
		return nil

	case "history":
		views, err := c.History(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tUSER\tITEM\tTYPE\tQTY")
		for _, v := range views {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", v.Timestamp, v.UserName, v.Name, v.ChangeType, v.Quantity)
		}
		return w.Flush()
	}
	return fmt.Errorf("unknown command %q", args[0])
}

// consume runs one scan session: offer, confirm.
func consume(ctx context.Context, c *client.Client, payload string) error {
	sess, err := c.StartSession(ctx)
	if err != nil {
		return err
	}
	snap, err := c.Offer(ctx, sess.ID, workflow.Input{Scanned: payload})
	if err != nil {
		return err
	}
	switch snap.State {
	case workflow.StateNotFound:
		return fmt.Errorf("no product with code %q", snap.Code)
	case workflow.StateOutOfStock:
		return fmt.Errorf("%s is out of stock", snap.Product.Name)
	case workflow.StateResolved:
	default:
		return fmt.Errorf("unexpected session state %s", snap.State)
	}

	snap, err = c.Confirm(ctx, sess.ID)
	if err != nil {
		return err
	}
	fmt.Printf("used 1 %s of %s, %d left\n", snap.Product.Unit, snap.Product.Name, snap.Product.CurrentStock)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
