package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version   int    `json:"version"`
	ServerID  string `json:"server_id"`
	Seed      int64  `json:"seed"`
	Digest    string `json:"catalogs_digest"`
	CreatedAt int64  `json:"created_at"`
	Players   int    `json:"players"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Players []PlayerV1 `json:"players"`
}

type PlayerV1 struct {
	PlayerID    string         `json:"player_id"`
	WorldTime   int64          `json:"world_time"`
	Inventory   map[string]int `json:"inventory"`
	PendingMaps []string       `json:"pending_maps,omitempty"`
	Purchases   []PurchaseV1   `json:"purchases,omitempty"`
	Bounties    []BountyV1     `json:"bounties,omitempty"`

	// Deliveries are paid-for grants the host has not received yet.
	Deliveries []GrantV1 `json:"deliveries,omitempty"`
}

type GrantV1 struct {
	Reason     string    `json:"reason"`
	Items      []StackV1 `json:"items,omitempty"`
	Rarity     string    `json:"rarity,omitempty"`
	GambleType string    `json:"gamble_type,omitempty"`
	Biome      string    `json:"biome,omitempty"`
}

type StackV1 struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

type PurchaseV1 struct {
	Kind     string `json:"kind"`
	Interval int    `json:"interval"`
	Index    int    `json:"index"`
}

type BountyV1 struct {
	ID                 string         `json:"id"`
	TargetName         string         `json:"target_name,omitempty"`
	Biome              string         `json:"biome,omitempty"`
	MonsterID          string         `json:"monster_id"`
	Level              int            `json:"level"`
	Adds               []AddV1        `json:"adds,omitempty"`
	RewardIron         int            `json:"reward_iron,omitempty"`
	RewardGold         int            `json:"reward_gold,omitempty"`
	RewardCoins        int            `json:"reward_coins,omitempty"`
	RewardForestTokens int            `json:"reward_forest_tokens,omitempty"`
	State              string         `json:"state"`
	Interval           int            `json:"interval"`
	TargetSlain        bool           `json:"target_slain,omitempty"`
	AddsSlain          map[string]int `json:"adds_slain,omitempty"`
}

type AddV1 struct {
	MonsterID string `json:"monster_id"`
	Level     int    `json:"level"`
	Count     int    `json:"count"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	snap.Header.Version = Version
	snap.Header.Players = len(snap.Players)

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// FileName orders snapshots by creation time when listed lexically.
func FileName(createdAt int64) string {
	return fmt.Sprintf("%020d.snap.zst", createdAt)
}

// Latest returns the newest snapshot file in dir, or "" if there is none.
func Latest(dir string) (string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var names []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".snap.zst") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
