package actions

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shaiso/dockflow/internal/docker"
	"github.com/shaiso/dockflow/internal/domain"
)

// maxFrameSize — предельный размер одного кадра stats.
const maxFrameSize = 1 << 20

// shellCommand оборачивает команду в sh -c. Пустая команда — nil,
// тогда используется CMD образа.
func shellCommand(cmd string) []string {
	if strings.TrimSpace(cmd) == "" {
		return nil
	}
	return []string{"sh", "-c", cmd}
}

// streamStats отдаёт по одному кадру на строку JSON до закрытия потока.
// Битый кадр отбрасывается, поток продолжается.
func streamStats(ctx context.Context, c *Call, e Emitter) error {
	body, err := c.Container().Stats(ctx)
	if err != nil {
		e.Result(nil, err)
		return nil
	}
	defer body.Close()

	e.Connected()

	reader := bufio.NewReaderSize(body, 64*1024)
	for {
		line, readErr := readFrame(reader)
		if len(line) > 0 {
			var frame map[string]any
			if err := json.Unmarshal(line, &frame); err != nil {
				e.ParseError(fmt.Errorf("parse stats frame: %w", err))
			} else {
				e.Frame(frame)
			}
		}

		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(readErr, io.EOF) {
				return ErrStreamClosed
			}
			return readErr
		}
	}
}

// readFrame читает одну строку без перевода строки.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		chunk, isPrefix, err := r.ReadLine()
		buf.Write(chunk)
		if buf.Len() > maxFrameSize {
			return nil, fmt.Errorf("stats frame exceeds %d bytes", maxFrameSize)
		}
		if err != nil {
			return bytes.TrimSpace(buf.Bytes()), err
		}
		if !isPrefix {
			return bytes.TrimSpace(buf.Bytes()), nil
		}
	}
}

// execContainer выполняет команду в контейнере и отдаёт stdout одним результатом.
// Непустой stderr дополнительно уходит уведомлением уровня error.
func execContainer(ctx context.Context, c *Call, e Emitter) error {
	session, err := c.Container().Exec(ctx, shellCommand(c.Request.Command))
	if err != nil {
		e.Result(nil, err)
		return nil
	}

	out, err := session.Start(ctx)
	if err != nil {
		e.Result(nil, err)
		return nil
	}
	defer out.Close()
	stop := closeOnDone(ctx, out)
	defer stop()

	var stdout, stderr bytes.Buffer
	err = copyOutput(c.Client, out, &stdout, &stderr)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		e.Result(nil, err)
		return nil
	}

	e.Result(stdout.String(), nil)
	if s := strings.TrimSpace(stderr.String()); s != "" {
		e.Diagnostic("exec container: " + s)
	}
	return nil
}

// runContainer создаёт и запускает контейнер, при pullImage сначала
// скачивает образ. Куски stdout отдаются по мере поступления.
func runContainer(ctx context.Context, c *Call, e Emitter) error {
	req := c.Request
	image := req.ExtraString(domain.ExtraImage)

	if req.ExtraBool(domain.ExtraPullImage) {
		if err := c.Client.PullImage(ctx, image); err != nil {
			e.Result(nil, err)
			return nil
		}
	}

	out, err := c.Client.RunContainer(ctx, docker.RunSpec{
		Image:  image,
		Cmd:    shellCommand(req.Command),
		Create: req.ExtraMap(domain.ExtraCreateOptions),
		Start:  req.ExtraMap(domain.ExtraStartOptions),
	})
	if err != nil {
		e.Result(nil, err)
		return nil
	}
	defer out.Close()
	stop := closeOnDone(ctx, out)
	defer stop()

	e.Connected()

	var stderr bytes.Buffer
	chunks := emitWriter(func(p []byte) { e.Result(string(p), nil) })
	err = copyOutput(c.Client, out, chunks, &stderr)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return err
	}

	if s := strings.TrimSpace(stderr.String()); s != "" {
		e.Diagnostic("run container: " + s)
	}
	return nil
}

// pullImage скачивает образ и отдаёт пустой объект после окончания прогресса.
func pullImage(ctx context.Context, c *Call, e Emitter) error {
	if err := c.Client.PullImage(ctx, c.Request.ExtraString(domain.ExtraImage)); err != nil {
		e.Result(nil, err)
		return nil
	}
	e.Result(map[string]any{}, nil)
	return nil
}

// closeOnDone закрывает поток при отмене ctx: hijacked-соединение
// само контекст не слушает, и чтение иначе висит до конца контейнера.
func closeOnDone(ctx context.Context, out io.Closer) (stop func() bool) {
	return context.AfterFunc(ctx, func() { _ = out.Close() })
}

// copyOutput разбирает вывод: stdcopy для потоков без TTY, иначе как есть.
func copyOutput(client docker.Client, out *docker.Stream, stdout, stderr io.Writer) error {
	var err error
	if out.Multiplexed {
		err = client.Demux(stdout, stderr, out)
	} else {
		_, err = io.Copy(stdout, out)
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// emitWriter превращает каждую запись в отдельный результат.
// Получатель не должен хранить p после возврата.
type emitWriter func(p []byte)

func (w emitWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w(p)
	}
	return len(p), nil
}
