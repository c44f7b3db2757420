// stellot - threshold-encrypted election state machine demo
//
// Usage:
//   stellot keygen              Generate an Ed25519 key pair
//   stellot demo                Run a full election lifecycle against an in-memory host
//   stellot help                Show this help
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/stellot/stellot-core/election"
	"github.com/stellot/stellot-core/ledger/memhost"
	"github.com/stellot/stellot-core/primitives"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "keygen":
		cmdKeygen()
	case "demo":
		cmdDemo()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`stellot - threshold-encrypted election state machine

Usage:
  stellot <command> [arguments]

Commands:
  keygen    Generate a new Ed25519 key pair
  demo      Run a full election lifecycle (deploy, issue, cast, post_share, finalize_tally)
  help      Show this help

For production use, implement ledger.Host against your own chain and
drive election.Machine directly.`)
}

func cmdKeygen() {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Public key:  0x%s\n", hex.EncodeToString(pub))
	fmt.Printf("Private key: 0x%s\n", hex.EncodeToString(priv.Seed()))
}

type party struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func newParty() party {
	pub, priv, _ := ed25519.GenerateKey(nil)
	return party{pub: pub, priv: priv}
}

func (p party) pk() [32]byte {
	var out [32]byte
	copy(out[:], p.pub)
	return out
}

func (p party) sign(msg [32]byte) [64]byte {
	var out [64]byte
	copy(out[:], ed25519.Sign(p.priv, msg[:]))
	return out
}

func cmdDemo() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	host := memhost.New().WithLogger(&logger)
	m := election.New(host).WithLogger(&logger)

	distributors := []party{newParty(), newParty(), newParty()}
	keyHolders := []party{newParty(), newParty()}
	voter := newParty()

	fmt.Println("1. Deploying election...")
	distRoster := make([][32]byte, len(distributors))
	for i, d := range distributors {
		distRoster[i] = d.pk()
	}
	khRoster := make([][32]byte, len(keyHolders))
	for i, k := range keyHolders {
		khRoster[i] = k.pk()
	}

	host.SetNow(1000)
	eid, err := m.Deploy("demo referendum", 2, 1000, 2000, []byte("group-enc-pubkey"), [32]byte{}, distRoster, 2, khRoster, 2)
	if err != nil {
		fmt.Printf("deploy failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("   election id: %d\n\n", eid)

	fmt.Println("2. Issuing voting account...")
	var nfIssue [32]byte
	nfIssue[0] = 1
	issueMsg := primitives.IssueDigest(eid, voter.pk(), nfIssue)
	sigs := []election.DistSig{
		{PK: distributors[0].pk(), Sig: distributors[0].sign(issueMsg)},
		{PK: distributors[1].pk(), Sig: distributors[1].sign(issueMsg)},
	}
	if err := m.IssueAccount(eid, voter.pk(), nfIssue, sigs); err != nil {
		fmt.Printf("issue_account failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("   voter issued")
	fmt.Println()

	fmt.Println("3. Casting a ballot...")
	var nfCast [32]byte
	nfCast[0] = 2
	c1, c2 := []byte("elgamal-c1"), []byte("elgamal-c2")
	castMsg := primitives.CastDigest(eid, nfCast, c1, c2)
	idx, err := m.Cast(eid, nfCast, c1, c2, voter.pk(), voter.sign(castMsg))
	if err != nil {
		fmt.Printf("cast failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("   ballot recorded at index %d\n\n", idx)

	fmt.Println("4. Voting window closes; key holders post partial decryptions...")
	host.SetNow(2000)
	shares := []election.SharePair{{C1: []byte("share-c1"), D: []byte("share-d")}}
	sharesBlob := primitives.EncodeSharesBatch(shares)
	sharesMsg := primitives.SharesDigest(eid, sharesBlob)

	for i, kh := range keyHolders {
		count, err := m.PostShare(eid, uint32(i), shares, kh.pk(), kh.sign(sharesMsg))
		if err != nil {
			fmt.Printf("post_share[%d] failed: %v\n", i, err)
			os.Exit(1)
		}
		fmt.Printf("   key holder %d posted, share count now %d\n", i, count)
	}
	fmt.Println()

	fmt.Println("5. Finalizing tally...")
	if err := m.FinalizeTally(eid, []uint32{1, 0}); err != nil {
		fmt.Printf("finalize_tally failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("   tally finalized: [1, 0]")
	fmt.Println()

	fmt.Printf("Event log (%d events):\n", len(host.Log()))
	for _, ev := range host.Log() {
		fmt.Printf("   %-10s eid=%d payload=%+v\n", ev.Topic, ev.EID, ev.Payload)
	}
}
