package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Config represents the mock project configuration
type Config struct {
	OutputDir     string
	NumPerLayer   int
	ImportDensity float64 // 每个模块平均引用几个下层模块
	NumCycles     int     // 注入的循环依赖数量
	NumViolations int     // 注入的 server→client 分层违规数量
	Seed          int64
}

// layerDir is one directory of the generated project, ordered from top to bottom
type layerDir struct {
	Dir    string
	Prefix string
	Ext    string
	Deps   []int // 可以引用的下层目录 (layers 下标)
}

var layers = []layerDir{
	{Dir: "components", Prefix: "Widget", Ext: ".tsx", Deps: []int{1, 3}},
	{Dir: "hooks", Prefix: "useFeature", Ext: ".ts", Deps: []int{2, 3}},
	{Dir: "services", Prefix: "service", Ext: ".ts", Deps: []int{3, 4}},
	{Dir: "utils", Prefix: "util", Ext: ".ts", Deps: nil},
	{Dir: "integrations", Prefix: "client", Ext: ".ts", Deps: []int{3}},
}

// ModuleInfo represents a module in the mock project
type ModuleInfo struct {
	Layer   int
	Index   int
	Name    string
	RelPath string // src 下的相对路径, 不含扩展名
	Imports []*ModuleInfo
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.OutputDir, "o", "./mock-project", "输出目录")
	flag.IntVar(&cfg.NumPerLayer, "modules", 50, "每个目录的模块数量")
	flag.Float64Var(&cfg.ImportDensity, "density", 3.0, "平均每个模块引用几个其他模块")
	flag.IntVar(&cfg.NumCycles, "cycles", 3, "注入的循环依赖数量")
	flag.IntVar(&cfg.NumViolations, "violations", 2, "注入的分层违规数量")
	flag.Int64Var(&cfg.Seed, "seed", 1, "随机种子 (相同种子生成相同项目)")
	flag.Parse()

	fmt.Printf("正在生成 mock 项目...\n")
	fmt.Printf("  目录数: %d\n", len(layers))
	fmt.Printf("  每目录模块数: %d\n", cfg.NumPerLayer)
	fmt.Printf("  总模块数: %d\n", cfg.NumPerLayer*len(layers))
	fmt.Printf("  引用密度: %.1f\n", cfg.ImportDensity)
	fmt.Printf("  循环依赖: %d  分层违规: %d\n", cfg.NumCycles, cfg.NumViolations)

	if err := generateProject(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ 项目生成完成: %s\n", cfg.OutputDir)
	fmt.Printf("\n下一步:\n")
	fmt.Printf("  archscan analyze %s -d .archscan.db\n", cfg.OutputDir)
	fmt.Printf("  archscan cycles -d .archscan.db\n")
}

func generateProject(cfg *Config) error {
	if cfg.NumPerLayer <= 0 {
		return fmt.Errorf("modules must be > 0")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	modules := generateRegistry(cfg)
	wireImports(cfg, rng, modules)
	injectCycles(cfg, rng, modules)
	injectViolations(cfg, rng, modules)

	for li, l := range layers {
		dir := filepath.Join(cfg.OutputDir, "src", l.Dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		for _, m := range modules[li] {
			path := filepath.Join(cfg.OutputDir, "src", filepath.FromSlash(m.RelPath)+l.Ext)
			if err := os.WriteFile(path, []byte(generateModule(m)), 0644); err != nil {
				return err
			}
		}
		fmt.Printf("  ✓ 生成目录 src/%s (%d/%d)\n", l.Dir, li+1, len(layers))
	}

	return generatePackageJSON(cfg)
}

func generatePackageJSON(cfg *Config) error {
	content := `{
  "name": "mock-project",
  "private": true,
  "version": "0.0.0"
}
`
	return os.WriteFile(filepath.Join(cfg.OutputDir, "package.json"), []byte(content), 0644)
}

func generateRegistry(cfg *Config) [][]*ModuleInfo {
	modules := make([][]*ModuleInfo, len(layers))
	for li, l := range layers {
		for i := 0; i < cfg.NumPerLayer; i++ {
			name := fmt.Sprintf("%s%03d", l.Prefix, i)
			modules[li] = append(modules[li], &ModuleInfo{
				Layer:   li,
				Index:   i,
				Name:    name,
				RelPath: l.Dir + "/" + name,
			})
		}
	}
	return modules
}

// wireImports only points at lower directories, or at higher indexes in the same
// directory for utils, so the base project is acyclic
func wireImports(cfg *Config, rng *rand.Rand, modules [][]*ModuleInfo) {
	spread := int(cfg.ImportDensity * 2)
	if spread < 1 {
		spread = 1
	}
	for li, l := range layers {
		for _, m := range modules[li] {
			numImports := rng.Intn(spread) + 1
			seen := make(map[*ModuleInfo]bool)
			for i := 0; i < numImports; i++ {
				var target *ModuleInfo
				if len(l.Deps) == 0 {
					if m.Index+1 >= len(modules[li]) {
						break
					}
					target = modules[li][m.Index+1+rng.Intn(len(modules[li])-m.Index-1)]
				} else {
					dep := l.Deps[rng.Intn(len(l.Deps))]
					target = modules[dep][rng.Intn(len(modules[dep]))]
				}
				if target != m && !seen[target] {
					seen[target] = true
					m.Imports = append(m.Imports, target)
				}
			}
		}
	}
}

// injectCycles closes a chain through utils by importing backwards
func injectCycles(cfg *Config, rng *rand.Rand, modules [][]*ModuleInfo) {
	utils := modules[3]
	for i := 0; i < cfg.NumCycles && len(utils) > 1; i++ {
		from := utils[1+rng.Intn(len(utils)-1)]
		to := utils[rng.Intn(from.Index)]
		// 先保证 to → from, 再加反向引用闭环
		if !imports(to, from) {
			to.Imports = append(to.Imports, from)
		}
		from.Imports = append(from.Imports, to)
	}
}

// injectViolations makes services import hooks
func injectViolations(cfg *Config, rng *rand.Rand, modules [][]*ModuleInfo) {
	services, hooks := modules[2], modules[1]
	for i := 0; i < cfg.NumViolations; i++ {
		s := services[rng.Intn(len(services))]
		h := hooks[rng.Intn(len(hooks))]
		if !imports(s, h) {
			s.Imports = append(s.Imports, h)
		}
	}
}

func imports(m, target *ModuleInfo) bool {
	for _, i := range m.Imports {
		if i == target {
			return true
		}
	}
	return false
}

func generateModule(m *ModuleInfo) string {
	var sb strings.Builder

	for i, imp := range m.Imports {
		alias := fmt.Sprintf("dep%d", i)
		// 同目录用相对路径, 跨目录交替使用别名和相对路径
		var spec string
		switch {
		case imp.Layer == m.Layer:
			spec = "./" + imp.Name
		case i%2 == 0:
			spec = "@/" + imp.RelPath
		default:
			spec = "../" + imp.RelPath
		}
		sb.WriteString(fmt.Sprintf("import * as %s from '%s';\n", alias, spec))
	}
	if len(m.Imports) > 0 {
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("// %s is a generated module in %s\n", m.Name, layers[m.Layer].Dir))
	if layers[m.Layer].Ext == ".tsx" {
		sb.WriteString(fmt.Sprintf("export function %s(props: { value: number }) {\n", m.Name))
	} else {
		sb.WriteString(fmt.Sprintf("export function %s(input: number): number {\n", m.Name))
	}
	sb.WriteString("  let result = 0;\n")
	for i := range m.Imports {
		sb.WriteString(fmt.Sprintf("  if (result %% %d === 0) {\n    result += Object.keys(dep%d).length;\n  }\n", i+2, i))
	}
	if layers[m.Layer].Ext == ".tsx" {
		sb.WriteString("  return <div>{props.value + result}</div>;\n")
	} else {
		sb.WriteString("  return input + result;\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}
