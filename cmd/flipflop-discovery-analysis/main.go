// Command flipflop-discovery-analysis reports the birthday-approximation
// collision estimates behind address discovery's two contention phases:
// given round(stations, slots) alone, or simulate(stations, slots,
// addresses) across repeated rounds until every station has an address.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/flipflop-proto/flipflop/internal/discovery"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "flipflop-discovery-analysis"
	myApp.Usage = "stations time_slots [addresses]"
	myApp.Version = VERSION
	myApp.ArgsUsage = "stations time_slots [addresses]"
	myApp.Action = run
	if err := myApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	args := c.Args()
	switch len(args) {
	case 3:
		stations, slots, addresses := atoi(args[0]), atoi(args[1]), atoi(args[2])
		rounds := discovery.Simulate(stations, slots, addresses)
		for i := 1; i <= rounds; i++ {
			fmt.Println("-----")
			fmt.Printf("Round %d:\n", i)
		}
		fmt.Printf("%d rounds to settle\n", rounds)
	case 2:
		n, m := atoi(args[0]), atoi(args[1])
		r := discovery.Round(n, m)
		fmt.Printf("For %d of %d Prob collision = %.2f Expected successes = %.1f\n", n, m, r.CollisionProbability, float64(r.ExpectedSuccesses))
	default:
		return cli.NewExitError(fmt.Sprintf("usage: %s stations time_slots [addresses]", c.App.Name), 1)
	}
	return nil
}

func atoi(s string) int {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0
	}
	return n
}
