package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"flint/pkg/baseline"
	"flint/pkg/baseline/x64"
	"flint/pkg/bytecode"
	"flint/pkg/codecache"
	"flint/pkg/execmem"
)

// Config is the optional TOML configuration file.
type Config struct {
	Compile CompileConfig `toml:"compile"`
	Cache   CacheConfig   `toml:"cache"`
	CPU     CPUConfig     `toml:"cpu"`
}

type CompileConfig struct {
	SafepointEveryOp bool `toml:"safepoint-every-op"`
}

type CacheConfig struct {
	Dir string `toml:"dir"`
}

// CPUConfig overrides feature detection. Unset fields keep the probed
// value; forcing a feature off reproduces bailouts from older hardware.
type CPUConfig struct {
	SSE41  *bool `toml:"sse41"`
	POPCNT *bool `toml:"popcnt"`
}

func main() {
	configPath := flag.String("config-path", "", "Path to a TOML configuration file")
	modulePath := flag.String("module-path", "", "Path to the bytecode module to compile")
	outPath := flag.String("out-path", "", "Write the linked code image to this file")
	cachePath := flag.String("cache-path", "", "Artifact cache directory (overrides config)")
	verbose := flag.Bool("v", false, "Log per-function results")

	flag.Parse()

	if *modulePath == "" {
		log.Fatal("Error: --module-path flag is required")
	}

	var config Config
	if *configPath != "" {
		configData, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to read config file: %v", err)
		}
		if err := toml.Unmarshal(configData, &config); err != nil {
			log.Fatalf("Failed to parse config file: %v", err)
		}
	}
	if *cachePath != "" {
		config.Cache.Dir = *cachePath
	}

	moduleData, err := os.ReadFile(*modulePath)
	if err != nil {
		log.Fatalf("Failed to read module: %v", err)
	}
	m, err := bytecode.Decode(moduleData)
	if err != nil {
		log.Fatalf("Failed to decode module: %v", err)
	}
	log.Printf("Loaded module: %d functions, %d types, %d host imports",
		len(m.Funcs), len(m.Types), len(m.Hosts))

	feats := x64.DetectFeatures()
	if config.CPU.SSE41 != nil {
		feats.SSE41 = *config.CPU.SSE41
	}
	if config.CPU.POPCNT != nil {
		feats.POPCNT = *config.CPU.POPCNT
	}

	var cache *codecache.Cache
	if config.Cache.Dir != "" {
		cache, err = codecache.Open(config.Cache.Dir)
		if err != nil {
			log.Fatalf("Failed to open cache: %v", err)
		}
		defer cache.Close()
	}

	be := x64.New(feats)
	opts := baseline.Options{SafepointEveryOp: config.Compile.SafepointEveryOp}

	start := time.Now()
	var arts []*baseline.Artifact
	var compiled, hits, bailed, codeBytes int
	toStore := make(map[codecache.Key]*baseline.Artifact)

	for i := range m.Funcs {
		fi := uint32(i)
		var key codecache.Key
		if cache != nil {
			key, err = codecache.KeyFor(be.Target(), feats.Bits(), m, fi)
			if err != nil {
				log.Fatalf("Failed to derive cache key for function %d: %v", i, err)
			}
			art, err := cache.Get(key)
			if err != nil {
				log.Fatalf("Cache lookup for function %d failed: %v", i, err)
			}
			if art != nil {
				arts = append(arts, art)
				hits++
				codeBytes += len(art.Code)
				continue
			}
		}

		art, err := baseline.Compile(m, fi, be, opts)
		if err != nil {
			if baseline.IsBailout(err) {
				bailed++
				log.Printf("func %d: %v", i, err)
				continue
			}
			log.Fatalf("Failed to compile function %d: %v", i, err)
		}
		compiled++
		codeBytes += len(art.Code)
		arts = append(arts, art)
		if cache != nil {
			toStore[key] = art
		}
		if *verbose {
			log.Printf("func %d: %d bytes, %d spill slots, %d relocs, %d trap sites, %d safepoints",
				i, len(art.Code), art.Frame.SlotCount, len(art.Relocs), len(art.Traps), len(art.Safepoints))
		}
	}

	if len(toStore) > 0 {
		if err := cache.PutAll(toStore); err != nil {
			log.Fatalf("Failed to store artifacts: %v", err)
		}
	}

	elapsed := time.Since(start)
	log.Printf("Compiled %d functions (%d cache hits, %d bailed out) in %s",
		compiled, hits, bailed, elapsed)
	log.Printf("Generated %d bytes of code", codeBytes)

	if *outPath != "" {
		l, err := execmem.Place(arts)
		if err != nil {
			log.Fatalf("Failed to link functions: %v", err)
		}
		if err := os.WriteFile(*outPath, l.Code, 0644); err != nil {
			log.Fatalf("Failed to write image: %v", err)
		}
		log.Printf("Wrote %d-byte image to %s", len(l.Code), *outPath)
	}
}
