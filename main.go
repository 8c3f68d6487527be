package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ByLCY/textimage/binding"
	"github.com/ByLCY/textimage/config"
	"github.com/ByLCY/textimage/dsl"
	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/imagegen"
	"github.com/ByLCY/textimage/layout"
	"github.com/ByLCY/textimage/logger"
	"github.com/ByLCY/textimage/server"
)

// options 汇总命令行参数；零值表示沿用配置文件。
type options struct {
	text       string
	out        string
	configPath string
	stylesPath string
	style      string
	data       string
	debug      string
	engine     string
	font       string
	size       int
	angle      int
	angleSet   bool
	serve      bool
	addr       string
	noCache    bool
	listFonts  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.text, "text", "", "要渲染的文本，支持 ${path} 占位符")
	flag.StringVar(&opts.out, "out", "output/text.png", "PNG 输出路径，- 表示标准输出")
	flag.StringVar(&opts.configPath, "config", "", "配置文件路径（.toml/.yaml）")
	flag.StringVar(&opts.stylesPath, "styles", "", "样式文件路径")
	flag.StringVar(&opts.style, "style", "", "使用的样式名")
	flag.StringVar(&opts.data, "data", "", "绑定到文本的 JSON 数据")
	flag.StringVar(&opts.debug, "debug", "", "渲染调试 JSON 输出路径")
	flag.StringVar(&opts.engine, "engine", "", "字形渲染引擎：canvas 或 opentype")
	flag.StringVar(&opts.font, "font", "", "字体文件名或 builtin:go-regular")
	flag.IntVar(&opts.size, "size", 0, "字号（像素）")
	flag.IntVar(&opts.angle, "angle", 0, "逆时针旋转角度")
	flag.BoolVar(&opts.serve, "serve", false, "启动 HTTP 服务")
	flag.StringVar(&opts.addr, "addr", "", "HTTP 监听地址")
	flag.BoolVar(&opts.noCache, "no-cache", false, "跳过缓存读取与写入")
	flag.BoolVar(&opts.listFonts, "list-fonts", false, "列出可用字体后退出")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "angle" {
			opts.angleSet = true
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("生成图片失败: %v", err)
	}
}

// run 串联配置、字体、渲染服务与输出。
func run(ctx context.Context, opts options, stdout io.Writer) error {
	file, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.engine != "" {
		file.Engine = opts.engine
	}
	if opts.stylesPath != "" {
		file.Styles = opts.stylesPath
	}
	if opts.addr != "" {
		file.Server.Addr = opts.addr
	}

	lg, closer := logger.New(logger.Options{
		Level:     file.Log.Level,
		File:      file.Log.File,
		MaxSizeMB: file.Log.MaxSizeMB,
	})
	defer closer.Close()

	if opts.listFonts {
		names, err := fonts.List(file.Fonts.Dir)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	cfg, err := file.ImageConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, opts); err != nil {
		return err
	}

	var styles *dsl.Library
	if file.Styles != "" {
		if styles, err = dsl.Load(file.Styles); err != nil {
			return err
		}
	}
	if opts.style != "" {
		st, err := styles.Lookup(opts.style)
		if err != nil {
			return err
		}
		if err := st.Apply(&cfg); err != nil {
			return err
		}
	}

	if err := fetchRemoteFonts(ctx, file.Fonts, lg); err != nil {
		return err
	}

	engine, err := imagegen.NewEngine(file.Engine)
	if err != nil {
		return err
	}
	svc, err := imagegen.New(cfg, imagegen.WithGlyphRenderer(engine), imagegen.WithLogger(lg))
	if err != nil {
		return err
	}

	if file.Fonts.Watch {
		w, err := fonts.Watch(cfg.FontDirectory, svc.FontChanged, lg)
		if err != nil {
			lg.Warn("font watcher disabled", "dir", cfg.FontDirectory, "error", err)
		} else {
			defer w.Close()
		}
	}

	if opts.serve {
		srv := server.New(svc,
			server.WithStyles(styles),
			server.WithLogger(lg),
			server.WithAddr(file.Server.Addr),
		)
		return srv.ListenAndServe(ctx)
	}
	return renderOnce(ctx, svc, opts, stdout)
}

// applyFlags 用显式给出的命令行参数覆盖配置。
func applyFlags(cfg *imagegen.Config, opts options) error {
	if opts.font != "" {
		if err := cfg.SetFont(opts.font); err != nil {
			return err
		}
	}
	if opts.size != 0 {
		if err := cfg.SetFontSize(opts.size, true); err != nil {
			return err
		}
	}
	if opts.angleSet {
		if err := cfg.SetFontAngle(opts.angle, true); err != nil {
			return err
		}
	}
	return nil
}

func fetchRemoteFonts(ctx context.Context, fc config.FontsConfig, lg *slog.Logger) error {
	if len(fc.Remote) == 0 {
		return nil
	}
	if err := os.MkdirAll(fc.Dir, 0o755); err != nil {
		return fmt.Errorf("创建字体目录失败: %w", err)
	}
	fetcher := fonts.NewFetcher()
	for _, spec := range fc.Remote {
		name, err := fetcher.Fetch(ctx, spec, fc.Dir)
		if err != nil {
			return fmt.Errorf("下载字体 %s 失败: %w", spec, err)
		}
		lg.Info("remote font ready", "spec", spec, "font", name)
	}
	return nil
}

func renderOnce(ctx context.Context, svc *imagegen.Service, opts options, stdout io.Writer) error {
	if opts.text == "" {
		return errors.New("缺少 -text 参数")
	}
	text := opts.text
	if opts.data != "" {
		data, err := binding.Decode([]byte(opts.data))
		if err != nil {
			return err
		}
		text = binding.Interpolate(text, data)
	}

	var out imagegen.Output
	if opts.out == "-" {
		out = imagegen.EmitBytes{W: stdout}
	} else {
		out = imagegen.WriteToPath{Path: opts.out, MakeParents: true}
	}

	res, err := svc.Generate(ctx, text, out, opts.noCache)
	if err != nil {
		return err
	}
	if opts.debug != "" {
		if err := writeDebug(res.Report(), opts.debug); err != nil {
			return err
		}
	}
	if opts.out != "-" {
		state := "未命中缓存"
		if res.CacheHit {
			state = "命中缓存"
		}
		fmt.Fprintf(stdout, "已生成 PNG：%s（%s）\n", opts.out, state)
	}
	return nil
}

func writeDebug(rep *layout.Report, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(rep, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
