package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"math"
	"math/big"
	"strconv"

	"github.com/zintix-labs/distlab"
	"github.com/zintix-labs/distlab/demo/demo_configs"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name      string
	id        spec.DID
	worker    int
	replicas  int
	draws     int
	seed      int64
	pprofmode string
}

type didFlag struct{ p *spec.DID }

func (f didFlag) String() string { return fmt.Sprint(uint32(*f.p)) }
func (f didFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*f.p = spec.DID(u)
	return nil
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.Var(didFlag{&cfg.id}, "dist", "target distribution id")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.replicas, "replicas", 1, "number of replicas for consistency analysis")
	flag.IntVar(&cfg.draws, "draws", 10000000, "draws per run (per replica in replica mode)")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// given seed illeagel -> default seed
	if cfg.seed < 1 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

// 這裡解析並分支要執行的模擬模式
func executeStudy() {
	cfg.valid() // 基本檢查

	lab, err := distlab.NewAuto(
		core.Default(),
		distlab.Configs(demo_configs.FS),
	)
	if err != nil {
		log.Fatal(err)
	}
	s, err := lab.NewStudyWithSeed(cfg.id, cfg.seed)
	if err != nil {
		log.Fatal(err)
	}
	ent, _ := lab.EntryById(cfg.id)
	cfg.name = ent.Name
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if cfg.replicas == 1 { // 純抽樣模擬
		if cfg.worker == 1 { // 單線程
			p.Printf("%s[DIST:%s] [DRAWS:%d]%s\n", green, cfg.name, cfg.draws, reset)
			st, used, _ := s.Run(cfg.draws, true)
			st.StdOut(used)
		} else {
			p.Printf("%s[WORKERS:%d] [DIST:%s] [DRAWS:%d]%s\n", green, cfg.worker, cfg.name, cfg.worker*cfg.draws, reset)
			st, used, _ := s.RunMP(cfg.draws, cfg.worker, true) // 併發
			st.StdOut(used)
		}
	} else { // 複本一致性分析
		p.Printf("%s[REPLICAS:%d] [DIST:%s] [DRAWS PER REPLICA:%d]%s\n", green, cfg.replicas, cfg.name, cfg.draws, reset)
		st, est, used, _ := s.RunReplicas(cfg.replicas, cfg.draws, true)
		st.StdOut(used)
		est.Out()
	}
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	// 工作協程檢查(併發數)
	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}

	// 複本檢查
	if cfg.replicas < 1 {
		log.Fatal("value err : replicas must > 0")
	}
	// 複本數量太多 resize
	if cfg.replicas > 1024 {
		p.Printf("too much replicas: %d resized to 1,024 replicas\n", cfg.replicas)
		cfg.replicas = 1024
	}

	// 抽樣數檢查
	if cfg.draws < 1 {
		log.Fatal("value err : draws must > 0")
	}

	// 複本分析時，單一複本不需要超過一百萬抽（合併報告已涵蓋長期行為）
	if cfg.replicas > 1 && cfg.draws > 1000000 {
		p.Printf("too much draws for each replica : %d resized to 1,000,000 draws per replica\n", cfg.draws)
		cfg.draws = 1000000
	}
}
