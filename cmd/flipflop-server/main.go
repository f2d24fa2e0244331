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

// Command flipflop-server runs one station on the bus: it answers address
// discovery broadcasts, serves an offset-reconciled command/event channel,
// and accepts firmware updates from a client that prepares it for one.
package main

import (
	"crypto/cipher"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
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
	myApp.Name = "flipflop-server"
	myApp.Usage = "one bus station: discovery responder, offset-reconciled app channel, update target"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen,l",
			Value: ":29901",
			Usage: "UDP listen address",
		},
		cli.StringFlag{
			Name:   "key",
			Value:  "it's a secrect",
			Usage:  "pre-shared secret between the client and every server",
			EnvVar: "FLIPFLOP_KEY",
		},
		cli.IntFlag{
			Name:  "serveraddress",
			Value: -1,
			Usage: "fixed bus address (0-255); -1 waits for discovery to assign one",
		},
		cli.IntFlag{
			Name:  "appport",
			Value: 2,
			Usage: "app channel port (2-7); ports 0 and 1 are reserved for discovery and update",
		},
		cli.StringFlag{
			Name:  "currentversion",
			Value: "0.1.0",
			Usage: "firmware version reported when deciding whether to accept an update",
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
			Usage: "start profiling server on :6060",
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
	config.Key = c.String("key")
	config.ServerAddress = c.Int("serveraddress")
	config.AppPort = c.Int("appport")
	config.CurrentVersion = c.String("currentversion")
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
	log.Println("serveraddress:", config.ServerAddress)
	log.Println("appport:", config.AppPort)
	log.Println("currentversion:", config.CurrentVersion)
	log.Println("snmplog:", config.SnmpLog)
	log.Println("snmpperiod:", config.SnmpPeriod)
	log.Println("pprof:", config.Pprof)
	log.Println("quiet:", config.Quiet)

	if config.Pprof {
		go func() {
			log.Println(http.ListenAndServe(":6060", nil))
		}()
	}

	aead, err := wire.NewAEAD(wire.DeriveKey(config.Key))
	checkError(err)

	conn, err := transport.ListenUDP(config.Listen)
	checkError(err)
	defer conn.Close()

	version, err := update.ParseVersion(config.CurrentVersion)
	checkError(err)

	s := &server{
		conn:      conn,
		aead:      aead,
		identify:  discovery.NewIdentify(),
		responder: discovery.NewServerResponder(1<<uint(config.AppPort), randsrc.Crypto{}, clock.System{}),
		log:       app.NewServerLog[domainproto.Event](app.DefaultLogCapacity),
		update: update.NewServerUpdateState(version, func(buf []byte) {
			log.Printf("update: committing %d bytes", len(buf))
		}),
		appPort: uint8(config.AppPort),
		quiet:   config.Quiet,
	}
	if config.ServerAddress >= 0 {
		addr := uint8(config.ServerAddress)
		s.address = &addr
		s.identify.SetAddress(addr)
		s.responder.Assigned = &addr
	}

	go stats.Logger(config.SnmpLog, config.SnmpPeriod)

	for {
		s.step()
	}
}

// server dispatches decoded datagrams to the discovery, update or app
// sub-protocol by the ServerPort carried in the header: port 0 is
// discovery, port 1 is update, and this station's configured appPort is
// the offset-reconciled command/event channel.
type server struct {
	conn      *transport.Conn
	aead      cipher.AEAD
	identify  discovery.Identify
	responder *discovery.ServerResponder
	log       *app.ServerLog[domainproto.Event]
	update    *update.ServerUpdateState
	address   *uint8
	appPort   uint8
	quiet     bool

	frameCounter uint16
}

func (s *server) step() {
	data, addr, err := s.conn.Receive(5 * time.Second)
	if err != nil {
		if transport.IsTimeout(err) {
			return
		}
		stats.Default.ParseFailures.Add(1)
		return
	}
	stats.Default.FramesReceived.Add(1)

	filter := func(h wire.Header) bool {
		return h.Source == wire.SourceClient
	}
	aead := s.aead
	if peeked, perr := wire.ParseHeader(data); perr == nil && peeked.ServerPort == 1 && s.update.State() == update.Updating {
		if sessionAEAD, kerr := s.updateAEAD(); kerr == nil {
			aead = sessionAEAD
		}
	}

	h, plaintext, err := wire.FromDatagram(data, filter, aead)
	if err != nil {
		stats.Default.DecryptFailures.Add(1)
		if !s.quiet {
			color.Yellow("drop: %v", err)
		}
		return
	}

	switch h.ServerPort {
	case 0:
		s.handleDiscovery(plaintext, addr)
	case 1:
		s.handleUpdate(plaintext)
	default:
		if s.address == nil || h.ServerPort != s.appPort {
			stats.Default.FilterRejections.Add(1)
			return
		}
		s.handleApp(plaintext, addr)
	}
}

func (s *server) reply(port uint8, payload []byte, addr net.Addr) {
	if s.address == nil {
		return
	}
	h := wire.Header{
		Source:        wire.SourceServer,
		ServerAddress: *s.address,
		ServerPort:    port,
		FrameCounter:  s.frameCounter,
	}
	s.frameCounter++

	out, err := wire.ToDatagram(h, payload, s.aead)
	if err != nil {
		color.Red("encode: %v", err)
		return
	}
	if err := s.conn.SendTo(out, addr); err != nil {
		color.Red("send: %v", err)
		return
	}
	stats.Default.FramesSent.Add(1)
}

// updateAEAD builds the AEAD cipher for the firmware update session key
// currently held by s.update, used to decrypt Update chunks once a
// PrepareForUpdate has handed that key over — distinct from s.aead, the
// long-term pre-shared cipher every other sub-protocol uses.
func (s *server) updateAEAD() (cipher.AEAD, error) {
	key := s.update.Key()
	return wire.NewAEAD(key[:])
}

func (s *server) handleDiscovery(plaintext []byte, addr net.Addr) {
	known, err := discovery.DecodeIdentify(plaintext)
	if err != nil {
		stats.Default.ParseFailures.Add(1)
		return
	}
	identified, ok := s.responder.HandleBroadcast(known)
	if !ok {
		return
	}
	stats.Default.DiscoveryRounds.Add(1)

	addrCopy := identified.ServerAddress
	s.address = &addrCopy
	s.identify.SetAddress(addrCopy)
	if !s.quiet {
		log.Printf("discovery: claimed address %d, replying to %v", addrCopy, addr)
	}
	s.reply(0, discovery.EncodeIdentified(identified), addr)
}

func (s *server) handleUpdate(plaintext []byte) {
	kind, prepare, chunk, err := update.DecodeMessage(plaintext)
	if err != nil {
		stats.Default.ParseFailures.Add(1)
		return
	}
	switch kind {
	case update.MessagePrepare:
		s.update.HandlePrepare(prepare)
	case update.MessageChunk:
		wasUpdating := s.update.State() == update.Updating
		complete := s.update.HandleChunk(chunk)
		switch {
		case complete:
			stats.Default.UpdatesCompleted.Add(1)
		case wasUpdating && s.update.State() == update.Idle:
			stats.Default.UpdateAborts.Add(1)
		}
	}
}

func (s *server) handleApp(plaintext []byte, addr net.Addr) {
	codec := domainproto.Codec{}
	req, err := app.DecodeCommandRequest[domainproto.Command, domainproto.Event](plaintext, codec)
	if err != nil {
		stats.Default.ParseFailures.Add(1)
		return
	}
	if req.Command != nil {
		log.Printf("app: received command %v", *req.Command)
	}

	reply := s.log.Reply(req.LastEventOffset, time.Now())
	if reply.Event != nil && reply.Event.Kind == app.KindRecovery {
		stats.Default.RecoveryEvents.Add(1)
	}
	s.reply(s.appPort, app.EncodeEventReply[domainproto.Command, domainproto.Event](reply, codec), addr)
}
