// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Command flipflop-client is the single bus master: it discovers servers'
// addresses, then polls each one's offset-reconciled event log on a
// fixed schedule.
package main

import (
	"crypto/cipher"
	"encoding/binary"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/flipflop-proto/flipflop/examples/domainproto"
	"github.com/flipflop-proto/flipflop/internal/app"
	"github.com/flipflop-proto/flipflop/internal/clock"
	"github.com/flipflop-proto/flipflop/internal/discovery"
	"github.com/flipflop-proto/flipflop/internal/randsrc"
	"github.com/flipflop-proto/flipflop/internal/stats"
	"github.com/flipflop-proto/flipflop/internal/transport"
	"github.com/flipflop-proto/flipflop/internal/update"
	"github.com/flipflop-proto/flipflop/internal/wire"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func checkError(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "flipflop-client"
	myApp.Usage = "bus master: address discovery plus offset-reconciled polling"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen,l",
			Value: ":0",
			Usage: "local UDP address to bind",
		},
		cli.StringFlag{
			Name:  "servers",
			Value: "127.0.0.1:29901",
			Usage: "comma-separated candidate server UDP addresses to discover against",
		},
		cli.StringFlag{
			Name:   "key",
			Value:  "it's a secrect",
			Usage:  "pre-shared secret between the client and every server",
			EnvVar: "FLIPFLOP_KEY",
		},
		cli.IntFlag{
			Name:  "appport",
			Value: 2,
			Usage: "app channel port every server answers on",
		},
		cli.IntFlag{
			Name:  "pollperiod",
			Value: 500,
			Usage: "milliseconds between offset-reconciliation polls",
		},
		cli.StringFlag{
			Name:  "updatefile",
			Value: "",
			Usage: "firmware image to push to every discovered server, then exit, instead of polling",
		},
		cli.StringFlag{
			Name:  "updateversion",
			Value: "",
			Usage: "version string reported in PrepareForUpdate, major.minor.patch",
		},
		cli.StringFlag{
			Name:  "snmplog",
			Value: "",
			Usage: "collect counters to file, aware of timeformat in golang, like: ./snmp-20060102.log",
		},
		cli.IntFlag{
			Name:  "snmpperiod",
			Value: 60,
			Usage: "counters collection period, in seconds",
		},
		cli.BoolFlag{
			Name:  "pprof",
			Usage: "start profiling server on :6061",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress per-datagram diagnostic messages",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command from shell",
		},
	}
	myApp.Action = run
	if err := myApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	config := Config{}
	config.Listen = c.String("listen")
	config.Servers = c.String("servers")
	config.Key = c.String("key")
	config.AppPort = c.Int("appport")
	config.PollPeriod = c.Int("pollperiod")
	config.UpdateFile = c.String("updatefile")
	config.UpdateVersion = c.String("updateversion")
	config.Log = c.String("log")
	config.SnmpLog = c.String("snmplog")
	config.SnmpPeriod = c.Int("snmpperiod")
	config.Pprof = c.Bool("pprof")
	config.Quiet = c.Bool("quiet")

	if c.String("c") != "" {
		checkError(parseJSONConfig(&config, c.String("c")))
	}

	if config.Log != "" {
		f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		checkError(err)
		defer f.Close()
		log.SetOutput(f)
	}

	log.Println("version:", VERSION)
	log.Println("listening on:", config.Listen)
	log.Println("servers:", config.Servers)
	log.Println("appport:", config.AppPort)
	log.Println("pollperiod:", config.PollPeriod)
	log.Println("snmplog:", config.SnmpLog)
	log.Println("snmpperiod:", config.SnmpPeriod)
	log.Println("pprof:", config.Pprof)
	log.Println("quiet:", config.Quiet)

	if config.Pprof {
		go func() {
			log.Println(http.ListenAndServe(":6061", nil))
		}()
	}

	aead, err := wire.NewAEAD(wire.DeriveKey(config.Key))
	checkError(err)

	conn, err := transport.ListenUDP(config.Listen)
	checkError(err)
	defer conn.Close()

	var candidates []net.Addr
	for _, s := range strings.Split(config.Servers, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		addr, err := net.ResolveUDPAddr("udp", s)
		checkError(err)
		candidates = append(candidates, addr)
	}

	cl := &client{
		conn:       conn,
		aead:       aead,
		appPort:    uint8(config.AppPort),
		candidates: candidates,
		servers:    make(map[string]*serverState),
		quiet:      config.Quiet,
	}

	go stats.Logger(config.SnmpLog, config.SnmpPeriod)

	for {
		result := cl.discover()
		if result.Clean {
			break
		}
	}

	if config.UpdateFile != "" {
		version, err := update.ParseVersion(config.UpdateVersion)
		checkError(err)
		return cl.pushUpdate(config.UpdateFile, version)
	}

	pollPeriod := time.Duration(config.PollPeriod) * time.Millisecond
	for {
		cl.pollAll()
		time.Sleep(pollPeriod)
	}
}

// serverState is everything the client remembers about one discovered
// server: its bus address, its UDP endpoint, and its offset-reconciliation
// state.
type serverState struct {
	addr       net.Addr
	busAddress uint8
	state      *app.ClientState[domainproto.Command, domainproto.Event]
}

// client is the bus master. One instance discovers servers and polls
// each of their event logs on a schedule.
type client struct {
	conn       *transport.Conn
	aead       cipher.AEAD
	appPort    uint8
	candidates []net.Addr
	servers    map[string]*serverState
	quiet      bool

	identify     discovery.Identify
	frameCounter uint16
}

// discover broadcasts an Identify bit-set to every candidate address and
// collects replies for discovery.ClientTimeWindow, folding confirmed
// single-reply addresses into the client's known server set. The caller
// must repeat the round until the returned result is Clean: a collision
// on this round left its address unassigned and needs a retry.
func (c *client) discover() discovery.RoundResult {
	round := discovery.NewClientRound(c.identify)

	payload := discovery.EncodeIdentify(round.Known)
	h := wire.Header{Source: wire.SourceClient, ServerPort: 0, FrameCounter: c.frameCounter}
	c.frameCounter++
	out, err := wire.ToDatagram(h, payload, c.aead)
	if err != nil {
		color.Red("discover: encode: %v", err)
		return discovery.RoundResult{Clean: true}
	}
	if err := c.conn.Broadcast(out, c.candidates); err != nil {
		color.Red("discover: broadcast: %v", err)
	}

	deadline := time.Now().Add(discovery.ClientTimeWindow)
	var replies []discovery.Identified
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		data, addr, err := c.conn.Receive(remaining)
		if err != nil {
			break
		}
		_, plaintext, err := wire.FromDatagram(data, func(h wire.Header) bool { return h.Source == wire.SourceServer }, c.aead)
		if err != nil {
			continue
		}
		identified, err := discovery.DecodeIdentified(plaintext)
		if err != nil {
			continue
		}
		replies = append(replies, identified)
		c.servers[addrKey(addr)] = &serverState{
			addr:       addr,
			busAddress: identified.ServerAddress,
			state:      app.NewClientState[domainproto.Command, domainproto.Event](),
		}
	}

	result := round.Tally(replies)
	c.identify = round.Known
	if !c.quiet {
		log.Printf("discovery: %d assigned, %d collided", len(result.Assigned), len(result.Collided))
	}
	return result
}

func addrKey(addr net.Addr) string { return addr.String() }

// pollAll sends one CommandRequest to every known server and applies
// whatever EventReply comes back.
func (c *client) pollAll() {
	codec := domainproto.Codec{}
	for key, srv := range c.servers {
		req := srv.state.NextRequest(domainproto.CommandReadSensor)
		payload := app.EncodeCommandRequest[domainproto.Command, domainproto.Event](req, codec)

		h := wire.Header{Source: wire.SourceClient, ServerPort: c.appPort, FrameCounter: c.frameCounter}
		c.frameCounter++
		out, err := wire.ToDatagram(h, payload, c.aead)
		if err != nil {
			color.Red("poll: encode: %v", err)
			continue
		}
		if err := c.conn.SendTo(out, srv.addr); err != nil {
			color.Red("poll: send: %v", err)
			continue
		}
		stats.Default.FramesSent.Add(1)

		data, _, err := c.conn.Receive(200 * time.Millisecond)
		if err != nil {
			if transport.IsTimeout(err) {
				stats.Default.Timeouts.Add(1)
			}
			continue
		}
		stats.Default.FramesReceived.Add(1)

		_, plaintext, err := wire.FromDatagram(data, func(h wire.Header) bool { return h.Source == wire.SourceServer }, c.aead)
		if err != nil {
			stats.Default.DecryptFailures.Add(1)
			continue
		}
		reply, err := app.DecodeEventReply[domainproto.Command, domainproto.Event](plaintext, codec)
		if err != nil {
			stats.Default.ParseFailures.Add(1)
			continue
		}
		srv.state.Apply(reply)
		if reply.Event != nil && !c.quiet {
			log.Printf("server %s: event kind=%v offset=%d", key, reply.Event.Kind, srv.state.Last)
		}
	}
}

// pushUpdate distributes the firmware image at path to every server
// discovered so far: a unicast PrepareForUpdate per target, then the
// broadcast chunk stream, both paced by update.Distributor.
func (c *client) pushUpdate(path string, version update.Version) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var key update.UpdateKey
	rng := randsrc.Crypto{}
	for i := 0; i < update.UpdateKeySize; i += 4 {
		binary.BigEndian.PutUint32(key[i:], rng.NextU32())
	}

	// The chunk stream is encrypted under this ephemeral session key, not
	// the long-term pre-shared one: PrepareForUpdate is what hands the key
	// to each target, under the long-term key, so it must stay on c.aead.
	updateAEAD, err := wire.NewAEAD(key[:])
	if err != nil {
		return err
	}

	var targets []update.Target
	for _, srv := range c.servers {
		targets = append(targets, update.Target{Address: srv.busAddress, Key: [16]byte(key)})
	}

	msg := update.PrepareForUpdate{
		Version:       version,
		ServerPorts:   1 << c.appPort,
		UpdateKey:     key,
		UpdateByteLen: uint32(len(data)),
	}

	dist := update.NewDistributor(clock.System{})
	err = dist.Prepare(targets, msg, func(target update.Target, msg update.PrepareForUpdate) error {
		srv := c.serverByBusAddress(target.Address)
		if srv == nil {
			return nil
		}
		return c.sendUpdateMessage(1, update.EncodePrepareMessage(msg), srv.addr, c.aead)
	})
	if err != nil {
		return err
	}

	return dist.Stream(data, func(chunk update.Update) error {
		out := update.EncodeChunkMessage(chunk)
		for _, srv := range c.servers {
			if err := c.sendUpdateMessage(1, out, srv.addr, updateAEAD); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *client) serverByBusAddress(address uint8) *serverState {
	for _, srv := range c.servers {
		if srv.busAddress == address {
			return srv
		}
	}
	return nil
}

func (c *client) sendUpdateMessage(port uint8, payload []byte, addr net.Addr, aead cipher.AEAD) error {
	h := wire.Header{Source: wire.SourceClient, ServerPort: port, FrameCounter: c.frameCounter}
	c.frameCounter++
	out, err := wire.ToDatagram(h, payload, aead)
	if err != nil {
		return err
	}
	return c.conn.SendTo(out, addr)
}

